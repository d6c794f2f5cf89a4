package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/persistence"
)

type employerService interface {
	CreateEmployer(ctx context.Context, input application.EmployerInput) (persistence.Employer, error)
	UpdateEmployer(ctx context.Context, params application.UpdateEmployerParams) (persistence.Employer, error)
	DeleteEmployer(ctx context.Context, employerID string) error
	ListEmployers(ctx context.Context) ([]persistence.Employer, error)
}

type EmployerHandler struct {
	service   employerService
	responder responder
	logger    *slog.Logger
}

func NewEmployerHandler(service employerService, logger *slog.Logger) *EmployerHandler {
	base := defaultLogger(logger)
	return &EmployerHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EmployerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EmployerHandler", operation, attrs...)
}

func (h *EmployerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req employerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode employer request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	employer, err := h.service.CreateEmployer(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "employer create failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("employer_id", employer.ID).InfoContext(r.Context(), "employer created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, employerResponse{Employer: toEmployerDTO(employer)})
}

func (h *EmployerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employerID, ok := EmployerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(employerID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing employer id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEmployerID)
		return
	}

	var req employerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "employer_id", employerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode employer request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "employer_id", employerID)
	employer, err := h.service.UpdateEmployer(r.Context(), application.UpdateEmployerParams{
		EmployerID: employerID,
		Input:      req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "employer update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "employer updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, employerResponse{Employer: toEmployerDTO(employer)})
}

func (h *EmployerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employerID, ok := EmployerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(employerID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing employer id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEmployerID)
		return
	}

	logger := h.log(r.Context(), "Delete", "employer_id", employerID)
	if err := h.service.DeleteEmployer(r.Context(), employerID); err != nil {
		logger.ErrorContext(r.Context(), "employer delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "employer deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EmployerHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	employers, err := h.service.ListEmployers(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "employer list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(employers)).InfoContext(r.Context(), "employers listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEmployersResponse{Employers: toEmployerDTOs(employers)})
}

type employerRequest struct {
	Name                string  `json:"name"`
	HourlyWage          *int    `json:"hourly_wage"`
	DefaultTransportFee *int    `json:"default_transport_fee"`
	IsOneTime           bool    `json:"is_one_time"`
	Note                *string `json:"note"`
	Color               *string `json:"color"`
}

func (r employerRequest) toInput() application.EmployerInput {
	return application.EmployerInput{
		Name:                strings.TrimSpace(r.Name),
		HourlyWage:          r.HourlyWage,
		DefaultTransportFee: r.DefaultTransportFee,
		IsOneTime:           r.IsOneTime,
		Note:                trimOptional(r.Note),
		Color:               trimOptional(r.Color),
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

type employerResponse struct {
	Employer employerDTO `json:"employer"`
}

type listEmployersResponse struct {
	Employers []employerDTO `json:"employers"`
}

type employerDTO struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	HourlyWage          *int    `json:"hourly_wage,omitempty"`
	DefaultTransportFee *int    `json:"default_transport_fee,omitempty"`
	IsOneTime           bool    `json:"is_one_time"`
	Note                *string `json:"note,omitempty"`
	Color               *string `json:"color,omitempty"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

func toEmployerDTO(employer persistence.Employer) employerDTO {
	return employerDTO{
		ID:                  employer.ID,
		Name:                employer.Name,
		HourlyWage:          employer.HourlyWage,
		DefaultTransportFee: employer.DefaultTransportFee,
		IsOneTime:           employer.IsOneTime,
		Note:                employer.Note,
		Color:               employer.Color,
		CreatedAt:           formatTime(employer.CreatedAt),
		UpdatedAt:           formatTime(employer.UpdatedAt),
	}
}

func toEmployerDTOs(employers []persistence.Employer) []employerDTO {
	out := make([]employerDTO, 0, len(employers))
	for _, employer := range employers {
		out = append(out, toEmployerDTO(employer))
	}
	return out
}
