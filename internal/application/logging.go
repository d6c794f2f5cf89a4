package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/shift-ledger/internal/attendance"
	"github.com/example/shift-ledger/internal/calendar"
	"github.com/example/shift-ledger/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, calendar.ErrNotConfigured), errors.Is(err, attendance.ErrMissingCredentials):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}

	var fetchErr *calendar.FetchError
	if errors.As(err, &fetchErr) {
		return "upstream_fetch"
	}
	var authErr *attendance.AuthError
	if errors.As(err, &authErr) {
		return "auth"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
