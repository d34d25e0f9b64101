// Package logger builds configured slog.Logger instances for auditkit
// services and provides the default error-sink wiring: audit failures are
// reported, never raised, and this package decides where reports go.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithService("auditsink"),
//	    logger.WithLevel(slog.LevelDebug),
//	)
//	logger.SetAsDefault(log)
//
//	engine, _ := requestaudit.New(cfg,
//	    requestaudit.WithErrorSink(logger.ErrorSink(log, "request audit")),
//	)
package logger
