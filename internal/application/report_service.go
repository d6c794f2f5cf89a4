package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/shift-ledger/internal/payroll"
	"github.com/example/shift-ledger/internal/persistence"
)

// ReportStore captures the persistence operations needed by the report service.
type ReportStore interface {
	ListReportRows(ctx context.Context, from, to time.Time) ([]persistence.ReportRow, error)
}

// ReportService aggregates completed shifts into fiscal-year income reports.
type ReportService struct {
	store    ReportStore
	location *time.Location
	now      func() time.Time
	cache    *reportCache
	logger   *slog.Logger
}

// NewReportService constructs a report service. Reports are grouped by month
// in location, UTC when nil.
func NewReportService(store ReportStore, location *time.Location, now func() time.Time) *ReportService {
	return NewReportServiceWithLogger(store, location, now, nil)
}

// NewReportServiceWithLogger constructs a report service with a specified logger.
func NewReportServiceWithLogger(store ReportStore, location *time.Location, now func() time.Time, logger *slog.Logger) *ReportService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		store:    store,
		location: location,
		now:      now,
		cache:    newReportCache(5*time.Minute, 8, now),
		logger:   defaultLogger(logger),
	}
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}

// Invalidate drops every cached report.
func (s *ReportService) Invalidate() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

// CurrentFiscalYear returns the fiscal year containing the service clock.
// December belongs to the following year.
func (s *ReportService) CurrentFiscalYear() int {
	now := s.now().In(s.location)
	if now.Month() == time.December {
		return now.Year() + 1
	}
	return now.Year()
}

// IncomeReport totals income, transport fees and expenses of the completed
// shifts in fiscal year year. A zero year selects CurrentFiscalYear.
func (s *ReportService) IncomeReport(ctx context.Context, year int) (report IncomeReport, err error) {
	if s == nil {
		err = fmt.Errorf("ReportService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("report store not configured")
		return
	}
	if year == 0 {
		year = s.CurrentFiscalYear()
	}
	if year < 1 {
		vErr := &ValidationError{}
		vErr.add("year", "year must be positive")
		err = vErr
		return
	}

	if cached, ok := s.cache.Get(year); ok {
		return cached, nil
	}

	logger := s.loggerWith(ctx, "IncomeReport", "year", year)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build income report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "income report built", "total", report.Total)
	}()

	period := payroll.FiscalYear(year, s.location)
	var rows []persistence.ReportRow
	rows, err = s.store.ListReportRows(ctx, period.Start, period.End)
	if err != nil {
		return
	}

	report = buildIncomeReport(year, period, rows, s.location)
	s.cache.Store(year, report)
	return
}

func buildIncomeReport(year int, period payroll.Period, rows []persistence.ReportRow, location *time.Location) IncomeReport {
	report := IncomeReport{
		Year:   year,
		Start:  period.Start,
		End:    period.End,
		Months: make([]MonthTotal, 12),
	}
	for i := range report.Months {
		first := period.Start.AddDate(0, i, 0)
		report.Months[i] = MonthTotal{Year: first.Year(), Month: first.Month()}
	}

	byEmployer := make(map[string]*EmployerTotal)
	for _, row := range rows {
		total := row.Income + row.TransportFee + row.Expenses
		report.Total += total

		local := row.Start.In(location)
		index := (local.Year()-period.Start.Year())*12 + int(local.Month()) - int(period.Start.Month())
		if index >= 0 && index < len(report.Months) {
			report.Months[index].Total += total
			report.Months[index].Shifts++
		}

		employer, ok := byEmployer[row.EmployerID]
		if !ok {
			employer = &EmployerTotal{EmployerID: row.EmployerID, EmployerName: row.EmployerName}
			byEmployer[row.EmployerID] = employer
		}
		employer.Total += total
		employer.Shifts++
	}

	for _, employer := range byEmployer {
		report.Employers = append(report.Employers, *employer)
	}
	sort.Slice(report.Employers, func(i, j int) bool {
		if report.Employers[i].Total == report.Employers[j].Total {
			return report.Employers[i].EmployerName < report.Employers[j].EmployerName
		}
		return report.Employers[i].Total > report.Employers[j].Total
	})
	return report
}
