package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/shift-ledger/internal/application"
)

type shiftService interface {
	ListShifts(ctx context.Context, query application.ShiftQuery) ([]application.ShiftView, error)
}

type ShiftHandler struct {
	service   shiftService
	responder responder
	logger    *slog.Logger
}

func NewShiftHandler(service shiftService, logger *slog.Logger) *ShiftHandler {
	base := defaultLogger(logger)
	return &ShiftHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ShiftHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ShiftHandler", operation, attrs...)
}

// List serves GET /shifts?status=&year=&employer_id=.
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	values := r.URL.Query()
	query := application.ShiftQuery{
		Status:     strings.TrimSpace(values.Get("status")),
		EmployerID: strings.TrimSpace(values.Get("employer_id")),
	}
	year, err := parseYear(values.Get("year"))
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid year parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	query.FiscalYear = year

	logger := h.log(r.Context(), "List", "status", query.Status, "year", query.FiscalYear)
	shifts, err := h.service.ListShifts(r.Context(), query)
	if err != nil {
		logger.ErrorContext(r.Context(), "shift list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(shifts)).InfoContext(r.Context(), "shifts listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listShiftsResponse{Shifts: toShiftDTOs(shifts)})
}

func parseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

type listShiftsResponse struct {
	Shifts []shiftDTO `json:"shifts"`
}

type shiftDTO struct {
	ID              string `json:"id"`
	CalendarEventID string `json:"calendar_event_id"`
	EmployerID      string `json:"employer_id"`
	EmployerName    string `json:"employer_name"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Status          string `json:"status"`
}

func toShiftDTO(shift application.ShiftView) shiftDTO {
	return shiftDTO{
		ID:              shift.ID,
		CalendarEventID: shift.CalendarEventID,
		EmployerID:      shift.EmployerID,
		EmployerName:    shift.EmployerName,
		Title:           shift.Title,
		Start:           formatTime(shift.Start),
		End:             formatTime(shift.End),
		Status:          string(shift.Status),
	}
}

func toShiftDTOs(shifts []application.ShiftView) []shiftDTO {
	out := make([]shiftDTO, 0, len(shifts))
	for _, shift := range shifts {
		out = append(out, toShiftDTO(shift))
	}
	return out
}
