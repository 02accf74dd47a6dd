package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithRun returns a context carrying a logger tagged with run_id.
func WithRun(ctx context.Context, runID string) context.Context {
	return WithLogger(ctx, slog.Default().With("run_id", runID))
}

// Ctx retrieves the run-scoped logger from context.
// Falls back to the default logger if not found.
func Ctx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}

// WithLogger stores an enriched logger in context.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}
