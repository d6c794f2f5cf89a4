package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/payroll"
	"github.com/example/shift-ledger/internal/persistence"
)

type entryService interface {
	CreateEntry(ctx context.Context, params application.CreateEntryParams) (persistence.PayrollEntry, error)
	UpdateEntry(ctx context.Context, params application.UpdateEntryParams) (persistence.PayrollEntry, error)
	DeleteEntry(ctx context.Context, entryID string) error
	GetEntry(ctx context.Context, entryID string) (persistence.PayrollEntry, error)
}

// EntryHandler completes shifts with payroll entries.
type EntryHandler struct {
	service   entryService
	responder responder
	logger    *slog.Logger
}

func NewEntryHandler(service entryService, logger *slog.Logger) *EntryHandler {
	base := defaultLogger(logger)
	return &EntryHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EntryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EntryHandler", operation, attrs...)
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode entry request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "shift_id", req.ShiftID)
	entry, err := h.service.CreateEntry(r.Context(), application.CreateEntryParams{
		ShiftID: strings.TrimSpace(req.ShiftID),
		Input:   req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "entry create failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("entry_id", entry.ID).InfoContext(r.Context(), "entry created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, entryResponse{Entry: toEntryDTO(entry)})
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := h.entryID(w, r, "Get")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Get", "entry_id", entryID)
	entry, err := h.service.GetEntry(r.Context(), entryID)
	if err != nil {
		logger.ErrorContext(r.Context(), "entry lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, entryResponse{Entry: toEntryDTO(entry)})
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := h.entryID(w, r, "Update")
	if !ok {
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "entry_id", entryID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode entry request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "entry_id", entryID)
	entry, err := h.service.UpdateEntry(r.Context(), application.UpdateEntryParams{
		EntryID: entryID,
		Input:   req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "entry update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "entry updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, entryResponse{Entry: toEntryDTO(entry)})
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := h.entryID(w, r, "Delete")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Delete", "entry_id", entryID)
	if err := h.service.DeleteEntry(r.Context(), entryID); err != nil {
		logger.ErrorContext(r.Context(), "entry delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "entry deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EntryHandler) entryID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing entry id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return "", false
	}
	return entryID, true
}

type expenseRequest struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

type entryRequest struct {
	ShiftID      string           `json:"shift_id"`
	Type         string           `json:"type"`
	ClockIn      string           `json:"clock_in"`
	ClockOut     string           `json:"clock_out"`
	BreakStart   *string          `json:"break_start"`
	BreakEnd     *string          `json:"break_end"`
	BreakMinutes *int             `json:"break_minutes"`
	Income       *int             `json:"income"`
	TransportFee *int             `json:"transport_fee"`
	Note         *string          `json:"note"`
	Expenses     []expenseRequest `json:"expenses"`
}

func (r entryRequest) toInput() application.EntryInput {
	input := application.EntryInput{
		Type:         persistence.EntryType(strings.ToUpper(strings.TrimSpace(r.Type))),
		ClockIn:      strings.TrimSpace(r.ClockIn),
		ClockOut:     strings.TrimSpace(r.ClockOut),
		BreakStart:   trimOptional(r.BreakStart),
		BreakEnd:     trimOptional(r.BreakEnd),
		BreakMinutes: r.BreakMinutes,
		Income:       r.Income,
		TransportFee: r.TransportFee,
		Note:         r.Note,
	}
	for _, expense := range r.Expenses {
		input.Expenses = append(input.Expenses, application.ExpenseInput{Name: expense.Name, Amount: expense.Amount})
	}
	return input
}

type entryResponse struct {
	Entry entryDTO `json:"entry"`
}

type expenseDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

type entryDTO struct {
	ID               string       `json:"id"`
	ShiftID          string       `json:"shift_id"`
	Type             string       `json:"type"`
	ClockIn          *string      `json:"clock_in,omitempty"`
	ClockOut         *string      `json:"clock_out,omitempty"`
	BreakStart       *string      `json:"break_start,omitempty"`
	BreakEnd         *string      `json:"break_end,omitempty"`
	BreakMinutes     *int         `json:"break_minutes,omitempty"`
	WorkMinutes      *int         `json:"work_minutes,omitempty"`
	WorkDuration     string       `json:"work_duration,omitempty"`
	LateNightMinutes *int         `json:"late_night_minutes,omitempty"`
	Income           *int         `json:"income,omitempty"`
	TransportFee     *int         `json:"transport_fee,omitempty"`
	Note             *string      `json:"note,omitempty"`
	Expenses         []expenseDTO `json:"expenses"`
	CreatedAt        string       `json:"created_at"`
	UpdatedAt        string       `json:"updated_at"`
}

func toEntryDTO(entry persistence.PayrollEntry) entryDTO {
	dto := entryDTO{
		ID:               entry.ID,
		ShiftID:          entry.ShiftID,
		Type:             string(entry.Type),
		ClockIn:          entry.ClockIn,
		ClockOut:         entry.ClockOut,
		BreakStart:       entry.BreakStart,
		BreakEnd:         entry.BreakEnd,
		BreakMinutes:     entry.BreakMinutes,
		WorkMinutes:      entry.WorkMinutes,
		LateNightMinutes: entry.LateNightMinutes,
		Income:           entry.Income,
		TransportFee:     entry.TransportFee,
		Note:             entry.Note,
		Expenses:         make([]expenseDTO, 0, len(entry.Expenses)),
		CreatedAt:        formatTime(entry.CreatedAt),
		UpdatedAt:        formatTime(entry.UpdatedAt),
	}
	if entry.WorkMinutes != nil {
		dto.WorkDuration = payroll.FormatMinutes(*entry.WorkMinutes)
	}
	for _, expense := range entry.Expenses {
		dto.Expenses = append(dto.Expenses, expenseDTO{ID: expense.ID, Name: expense.Name, Amount: expense.Amount})
	}
	return dto
}
