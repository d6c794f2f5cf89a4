package http

import (
	"context"
	"log/slog"

	"github.com/example/shift-ledger/internal/logging"
)

type contextKey string

const (
	employerIDContextKey contextKey = "employer_id"
	entryIDContextKey    contextKey = "entry_id"
)

// ContextWithLogger attaches the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, nil when absent.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithEmployerID injects the employer identifier resolved from the request path.
func ContextWithEmployerID(ctx context.Context, employerID string) context.Context {
	return context.WithValue(ctx, employerIDContextKey, employerID)
}

// EmployerIDFromContext extracts an employer identifier previously associated with the context.
func EmployerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(employerIDContextKey).(string)
	return id, ok
}

// ContextWithEntryID injects the payroll entry identifier resolved from the request path.
func ContextWithEntryID(ctx context.Context, entryID string) context.Context {
	return context.WithValue(ctx, entryIDContextKey, entryID)
}

// EntryIDFromContext extracts a payroll entry identifier previously associated with the context.
func EntryIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(entryIDContextKey).(string)
	return id, ok
}
