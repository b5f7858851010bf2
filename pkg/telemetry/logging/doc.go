// Package logging builds the process slog logger from configuration.
//
//	logger, err := logging.Setup(&cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "request handled") // includes request_id
//
// Attribute keys listed in RedactKeys have their values replaced, which keeps
// record contents logged at debug level out of shared log pipelines.
package logging
