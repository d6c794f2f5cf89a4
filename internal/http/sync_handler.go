package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/scheduler"
)

type syncRunner interface {
	RunNow(ctx context.Context, label string) (application.SyncResult, error)
	Running() bool
	LastRun() (scheduler.Run, bool)
	Next() time.Time
}

// SyncHandler exposes the manual sync trigger.
type SyncHandler struct {
	runner    syncRunner
	responder responder
	logger    *slog.Logger
}

func NewSyncHandler(runner syncRunner, logger *slog.Logger) *SyncHandler {
	base := defaultLogger(logger)
	return &SyncHandler{runner: runner, responder: newResponder(base), logger: base}
}

func (h *SyncHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SyncHandler", operation, attrs...)
}

// Trigger runs one sync and reports its counts. A failed run answers 502 with
// the same body shape.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.runner == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Trigger")
	// The run outlives the request; the scheduler timeout bounds it.
	result, err := h.runner.RunNow(context.WithoutCancel(r.Context()), "http")
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			logger.WarnContext(r.Context(), "sync rejected", "error_kind", "conflict")
			h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{
				ErrorCode: "SYNC_RUNNING",
				Message:   errSyncAlreadyRunning.Error(),
			})
			return
		}
		logger.ErrorContext(r.Context(), "sync not started", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
		logger.ErrorContext(r.Context(), "sync failed", "error", result.Error)
	} else {
		logger.InfoContext(r.Context(), "sync finished",
			"created", result.Created,
			"updated", result.Updated,
			"deleted", result.Deleted,
			"auto_filled", result.AutoFilled,
		)
	}
	h.responder.writeJSON(r.Context(), w, status, toSyncResultDTO(result))
}

// Status reports whether a run is active, the last run and the next scheduled one.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.runner == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := syncStatusResponse{
		Running: h.runner.Running(),
		NextRun: formatTime(h.runner.Next()),
	}
	if run, ok := h.runner.LastRun(); ok {
		resp.LastRun = &syncRunDTO{
			Label:      run.Label,
			StartedAt:  formatTime(run.Started),
			FinishedAt: formatTime(run.Finished),
			Result:     toSyncResultDTO(run.Result),
		}
	}
	h.log(r.Context(), "Status", "running", resp.Running).DebugContext(r.Context(), "sync status served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type syncResultDTO struct {
	Success    bool   `json:"success"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Deleted    int    `json:"deleted"`
	AutoFilled int    `json:"autoFilled"`
	Error      string `json:"error,omitempty"`
}

func toSyncResultDTO(result application.SyncResult) syncResultDTO {
	return syncResultDTO{
		Success:    result.Success,
		Created:    result.Created,
		Updated:    result.Updated,
		Deleted:    result.Deleted,
		AutoFilled: result.AutoFilled,
		Error:      result.Error,
	}
}

type syncRunDTO struct {
	Label      string        `json:"label"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at"`
	Result     syncResultDTO `json:"result"`
}

type syncStatusResponse struct {
	Running bool        `json:"running"`
	NextRun string      `json:"next_run,omitempty"`
	LastRun *syncRunDTO `json:"last_run,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
