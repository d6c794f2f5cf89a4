package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/shift-ledger/internal/application"
)

var testTokenParams = application.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestRequireToken(t *testing.T) {
	t.Parallel()

	hash, err := application.HashToken("s3cret", testTokenParams)
	if err != nil {
		t.Fatalf("failed to hash token: %v", err)
	}

	tests := []struct {
		name           string
		hash           string
		header         string
		value          string
		expectedStatus int
	}{
		{name: "missing credentials", hash: hash, expectedStatus: http.StatusUnauthorized},
		{name: "non bearer scheme", hash: hash, header: "Authorization", value: "Basic czNjcmV0", expectedStatus: http.StatusUnauthorized},
		{name: "wrong token", hash: hash, header: "Authorization", value: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "valid bearer token", hash: hash, header: "Authorization", value: "Bearer s3cret", expectedStatus: http.StatusOK},
		{name: "valid api token header", hash: hash, header: "X-API-Token", value: "s3cret", expectedStatus: http.StatusOK},
		{name: "disabled without hash", expectedStatus: http.StatusOK},
		{name: "malformed hash", hash: "$argon2id$broken", header: "Authorization", value: "Bearer s3cret", expectedStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			handler := RequireToken(tc.hash, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/shifts", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)

			if recorder.Code != tc.expectedStatus {
				t.Fatalf("expected %d, got %d", tc.expectedStatus, recorder.Code)
			}
			if called != (tc.expectedStatus == http.StatusOK) {
				t.Fatalf("expected next handler called=%v, got %v", tc.expectedStatus == http.StatusOK, called)
			}
		})
	}
}

func TestRequestLoggerAttachesLogger(t *testing.T) {
	t.Parallel()

	var sawLogger bool
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !sawLogger {
		t.Fatalf("expected request logger in context")
	}
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request ID header")
	}
}

func TestRequestLoggerKeepsIncomingRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request ID to be echoed, got %q", got)
	}
	line := buf.String()
	if !strings.Contains(line, `"request_id":"abc-123"`) || !strings.Contains(line, `"status":502`) || !strings.Contains(line, `"level":"ERROR"`) {
		t.Fatalf("unexpected log record %q", line)
	}
}

func TestRouterAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewRouter(RouterConfig{Middleware: []func(http.Handler) http.Handler{mark("outer"), nil, mark("inner")}})
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("expected outer then inner, got %v", order)
	}
}
