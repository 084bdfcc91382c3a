package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a logger writing to stdout, with Sentry fan-out when cfg.Sentry.DSN is set.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg, extractors...)
}

// NewWithWriter is New with an explicit destination for the local handler.
func NewWithWriter(w io.Writer, cfg Config, extractors ...ContextExtractor) *slog.Logger {
	local := newLocalHandler(w, cfg)

	if cfg.Sentry.DSN == "" {
		return slog.New(NewLogHandlerDecorator(local, extractors...))
	}

	sentryHandler, err := newSentryHandler(cfg.Sentry)
	if err != nil {
		// Keep logging locally if Sentry cannot start.
		slog.New(local).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return slog.New(NewLogHandlerDecorator(local, extractors...))
	}

	return slog.New(NewLogHandlerDecorator(newMultiHandler(local, sentryHandler), extractors...))
}

func newLocalHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// NewNope creates a logger that discards all output.
// Use this as a default when logging is not configured.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
