package logger

import (
	"context"
	"log/slog"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// With derives a context carrying a logger enriched with fields.
// Middleware uses it to stamp the trace id once per request.
func With(ctx context.Context, fields ...any) context.Context {
	enriched := From(ctx).With(fields...)
	return context.WithValue(ctx, loggerKey, enriched)
}

// From returns the context logger, falling back to the process logger.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
