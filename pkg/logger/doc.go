// Package logger builds slog loggers with context extraction and optional Sentry reporting.
//
// # Basic Usage
//
//	log := logger.New(logger.Config{Level: slog.LevelInfo},
//		logger.RequestID(),
//		logger.ContextAttrs(),
//	)
//
//	ctx = logger.WithAttrs(ctx, slog.String("provider", "google"))
//	log.InfoContext(ctx, "login started")
//	// {"level":"INFO","msg":"login started","request_id":"...","provider":"google"}
//
// # Sentry Integration
//
// When Config.Sentry.DSN is set, records are also sent to Sentry: errors create
// issues, warnings are stored as logs. An empty DSN or a failed Sentry init
// falls back to local logging only, so the same code path works in development.
//
// # Context Extractors
//
// A ContextExtractor pulls one attribute out of the context on every log call.
// RequestID reads chi's request id; ContextAttrs reads attributes stored with
// WithAttrs. Any slog.Handler can be wrapped with NewLogHandlerDecorator.
//
// # Privacy
//
// MaskEmail shortens the local part of an address before it is logged.
package logger
