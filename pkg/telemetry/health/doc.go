// Package health implements the liveness and readiness probes.
//
// Liveness only reports that the process is up. Readiness runs the registered
// component checks concurrently, each bounded by a timeout, and answers 503
// until all of them pass:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register("ruleset", health.RuleSetCheck(manager))
//	checker.Register("decisions", health.StoreCheck(store))
//	mux.Handle("/ready", checker.ReadinessHandler())
package health
