package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/shift-ledger/internal/attendance"
	"github.com/example/shift-ledger/internal/calendar"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "calendar not configured", err: fmt.Errorf("fetch: %w", calendar.ErrNotConfigured), want: "configuration"},
		{name: "missing credentials", err: attendance.ErrMissingCredentials, want: "configuration"},
		{name: "calendar fetch", err: &calendar.FetchError{Year: 2024, StatusCode: 500, Status: "Internal Server Error"}, want: "upstream_fetch"},
		{name: "portal login", err: &attendance.AuthError{State: attendance.StateLoggingIn, Err: context.DeadlineExceeded}, want: "auth"},
		{name: "validation", err: &ValidationError{FieldErrors: map[string]string{"name": "name is required"}}, want: "validation"},
		{name: "not found", err: ErrNotFound, want: "not_found"},
		{name: "already exists", err: ErrAlreadyExists, want: "already_exists"},
		{name: "conflict", err: fmt.Errorf("%w: shift completed", ErrConflict), want: "conflict"},
		{name: "other", err: errors.New("boom"), want: "unexpected"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
