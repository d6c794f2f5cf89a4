package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/payroll"
)

type reportService interface {
	IncomeReport(ctx context.Context, year int) (application.IncomeReport, error)
}

type ReportHandler struct {
	service   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

// Get serves GET /report?year=. Without a year the current fiscal year is used.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	year, err := parseYear(r.URL.Query().Get("year"))
	if err != nil {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid year parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	logger := h.log(r.Context(), "Get", "year", year)
	report, err := h.service.IncomeReport(r.Context(), year)
	if err != nil {
		logger.ErrorContext(r.Context(), "income report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "income report served", "fiscal_year", report.Year, "total", report.Total)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReportDTO(report))
}

type reportDTO struct {
	Year           int                `json:"year"`
	Start          string             `json:"start"`
	End            string             `json:"end"`
	Total          int                `json:"total"`
	TotalFormatted string             `json:"total_formatted"`
	Months         []monthTotalDTO    `json:"months"`
	Employers      []employerTotalDTO `json:"employers"`
}

type monthTotalDTO struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Total  int `json:"total"`
	Shifts int `json:"shifts"`
}

type employerTotalDTO struct {
	EmployerID   string `json:"employer_id"`
	EmployerName string `json:"employer_name"`
	Total        int    `json:"total"`
	Shifts       int    `json:"shifts"`
}

func toReportDTO(report application.IncomeReport) reportDTO {
	dto := reportDTO{
		Year:           report.Year,
		Start:          formatTime(report.Start),
		End:            formatTime(report.End),
		Total:          report.Total,
		TotalFormatted: payroll.FormatCurrency(report.Total),
		Months:         make([]monthTotalDTO, 0, len(report.Months)),
		Employers:      make([]employerTotalDTO, 0, len(report.Employers)),
	}
	for _, month := range report.Months {
		dto.Months = append(dto.Months, monthTotalDTO{
			Year:   month.Year,
			Month:  int(month.Month),
			Total:  month.Total,
			Shifts: month.Shifts,
		})
	}
	for _, employer := range report.Employers {
		dto.Employers = append(dto.Employers, employerTotalDTO{
			EmployerID:   employer.EmployerID,
			EmployerName: employer.EmployerName,
			Total:        employer.Total,
			Shifts:       employer.Shifts,
		})
	}
	return dto
}
