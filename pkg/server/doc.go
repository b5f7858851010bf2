// Package server provides the querydict HTTP API.
//
// The server matches ad-hoc queries against JSON records, lints queries,
// evaluates records against the loaded rule set and lists recorded
// decisions. It also serves Prometheus metrics and health probes.
//
// # Routes
//
//   - POST /v1/match - match one query against one record
//   - POST /v1/validate - report every problem in a query
//   - POST /v1/rules/evaluate - evaluate a record against the rule set
//   - GET /v1/decisions - list recorded decisions
//   - GET /metrics - Prometheus exposition (path configurable)
//   - GET /health, GET /ready - liveness and readiness (paths configurable)
//   - GET /version - build information
//
// A match request:
//
//	POST /v1/match
//	{
//	    "query": "domain:example.com AND status:active",
//	    "record": {"domain": "example.com", "status": "active"},
//	    "options": {"ambiguous_resolution": "OR"},
//	    "explain": true
//	}
//
// Errors share one shape:
//
//	{"error": {"type": "structural", "message": "...", "line": 1, "column": 12}}
//
// Argument errors and malformed bodies answer 400, query errors 422,
// unimplemented evaluation paths 501 and an unloaded rule set 503.
//
// # Middleware Chain
//
// Requests pass through, outermost first: recovery, request ID, logging and
// the body size limit. Each /v1 route is additionally wrapped in a tracing
// span, recorded in the request metrics under its route pattern and, when
// server.auth is enabled, authenticated by API key:
//
//	Authorization: Bearer <key>
//
// Missing or unknown keys answer 401 with type "unauthorized". Probes,
// /version and /metrics are never authenticated.
//
// With server.rate_limit enabled each client, identified by key name or
// remote IP, gets a token bucket. An empty bucket answers 429 with
// Retry-After and type "rate_limited".
//
// # TLS
//
// With server.tls enabled the listener serves HTTPS. The certificate pair is
// polled every reload_interval and swapped in place when either file
// changes, so renewals need no restart.
//
// # Lifecycle
//
// Start blocks until its context is cancelled and then shuts the server down
// gracefully within ServerConfig.ShutdownTimeout.
package server
