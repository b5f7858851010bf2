// Package telemetry groups the observability packages used by querydict.
//
//   - logging: slog setup with request and evaluation IDs from the context
//   - metrics: Prometheus collector fed by the query engine, rule set and retention
//   - tracing: OpenTelemetry spans for HTTP requests and evaluations
//   - health: liveness and readiness probes
//
// Each subpackage is configured from the matching section of
// config.TelemetryConfig and wired together by the serve command.
package telemetry
