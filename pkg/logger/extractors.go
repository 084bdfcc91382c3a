package logger

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestID extracts the request id set by chi's middleware.RequestID.
func RequestID() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := middleware.GetReqID(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}

type attrsKey struct{}

// WithAttrs returns a copy of ctx carrying attrs. Loggers built with
// ContextAttrs add them to every record logged with that context.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// ContextAttrs extracts the attributes stored with WithAttrs.
func ContextAttrs() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
		if len(attrs) == 0 {
			return slog.Attr{}, false
		}
		// A group with an empty key is inlined by slog handlers.
		return slog.Attr{Key: "", Value: slog.GroupValue(attrs...)}, true
	}
}
