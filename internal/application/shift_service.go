package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/shift-ledger/internal/payroll"
	"github.com/example/shift-ledger/internal/persistence"
)

// ShiftLister captures the read operations needed by the shift service.
type ShiftLister interface {
	ListShifts(ctx context.Context, filter persistence.ShiftFilter) ([]persistence.Shift, error)
	ListEmployers(ctx context.Context) ([]persistence.Employer, error)
}

// ShiftQuery narrows a shift listing. An empty Status matches both states and a
// zero FiscalYear matches every year.
type ShiftQuery struct {
	Status     string
	EmployerID string
	FiscalYear int
}

// ShiftView is a shift with the name of its employer.
type ShiftView struct {
	persistence.Shift
	EmployerName string
}

// ShiftService lists ledger shifts.
type ShiftService struct {
	store    ShiftLister
	location *time.Location
	logger   *slog.Logger
}

// NewShiftService constructs a shift service. Fiscal years are evaluated in
// location, UTC when nil.
func NewShiftService(store ShiftLister, location *time.Location, logger *slog.Logger) *ShiftService {
	if location == nil {
		location = time.UTC
	}
	return &ShiftService{store: store, location: location, logger: defaultLogger(logger)}
}

// ListShifts returns matching shifts ordered by start.
func (s *ShiftService) ListShifts(ctx context.Context, query ShiftQuery) (shifts []ShiftView, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("shift store not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ShiftService", "ListShifts", "status", query.Status, "fiscal_year", query.FiscalYear)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list shifts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(shifts)).DebugContext(ctx, "shifts listed")
	}()

	vErr := &ValidationError{}
	filter := persistence.ShiftFilter{EmployerID: strings.TrimSpace(query.EmployerID)}
	switch status := persistence.EntryStatus(strings.ToUpper(strings.TrimSpace(query.Status))); status {
	case "":
	case persistence.StatusPending, persistence.StatusCompleted:
		filter.Status = status
	default:
		vErr.add("status", "status must be PENDING or COMPLETED")
	}
	if query.FiscalYear < 0 {
		vErr.add("year", "year must be positive")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if query.FiscalYear > 0 {
		period := payroll.FiscalYear(query.FiscalYear, s.location)
		filter.StartsFrom = &period.Start
		filter.StartsBefore = &period.End
	}

	var raw []persistence.Shift
	raw, err = s.store.ListShifts(ctx, filter)
	if err != nil {
		return
	}
	var employers []persistence.Employer
	employers, err = s.store.ListEmployers(ctx)
	if err != nil {
		return
	}
	names := make(map[string]string, len(employers))
	for _, employer := range employers {
		names[employer.ID] = employer.Name
	}

	shifts = make([]ShiftView, 0, len(raw))
	for _, shift := range raw {
		shifts = append(shifts, ShiftView{Shift: shift, EmployerName: names[shift.EmployerID]})
	}
	return
}
