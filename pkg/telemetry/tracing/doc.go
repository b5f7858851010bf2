// Package tracing provides OpenTelemetry tracing for the querydict server.
//
// Spans are exported over OTLP gRPC and sampled by one of three strategies
// ("always", "never", "ratio"), always respecting the caller's sampling
// decision. When tracing is disabled every span is a noop.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//	mux.Handle("/v1/match", tracer.Middleware("/v1/match", handler))
//
// Handlers add query and result attributes with SetQueryAttributes and
// SetResultAttributes. The trace ID is echoed in the X-Trace-ID response
// header.
package tracing
