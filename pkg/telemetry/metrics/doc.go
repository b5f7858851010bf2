// Package metrics provides Prometheus metrics for querydict.
//
// A single Collector owns every metric and is passed to the components that
// produce them: it satisfies engine.Observer for query builds and matches,
// ruleset.Observer for per-rule outcomes and reloads, and retention.Observer
// for pruned decisions. The HTTP server records request counts and durations
// and mounts Handler at the configured metrics path.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	manager, err := ruleset.NewManager(&ruleset.Config{
//	    Path:           cfg.Rules.Path,
//	    Observer:       collector,
//	    EngineObserver: collector,
//	})
//
// Rule names are used as label values; past a fixed number of distinct rules
// further names are reported as "other".
package metrics
