package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/shift-ledger/internal/application"
)

// RequireToken rejects requests whose bearer token does not match the argon2id
// hash. An empty hash disables the check.
func RequireToken(hash string, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	hash = strings.TrimSpace(hash)

	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAPIToken)
				return
			}

			if err := application.VerifyToken(hash, token); err != nil {
				if errors.Is(err, application.ErrTokenMismatch) {
					responder.loggerFor(r.Context()).WarnContext(r.Context(), "api token rejected", "error_kind", "unauthorized")
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "認証トークンが無効です。"})
					return
				}
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "api token verification failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "認証トークンの検証中にエラーが発生しました。"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}

// RequestLogger attaches a per-request logger carrying a request ID, echoes the
// ID in X-Request-ID and logs the response status and duration.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" {
				id = uuid.NewString()
			}
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("X-Request-ID", id)

			ctx := ContextWithLogger(r.Context(), logger)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
