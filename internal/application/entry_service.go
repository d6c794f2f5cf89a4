package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/shift-ledger/internal/payroll"
	"github.com/example/shift-ledger/internal/persistence"
)

// EntryStore captures the persistence operations needed by the entry service.
type EntryStore interface {
	GetShift(ctx context.Context, id string) (persistence.Shift, error)
	GetEmployer(ctx context.Context, id string) (persistence.Employer, error)
	CompleteShift(ctx context.Context, entry persistence.PayrollEntry) error
	GetEntry(ctx context.Context, id string) (persistence.PayrollEntry, error)
	ReplaceEntry(ctx context.Context, entry persistence.PayrollEntry) error
	DeleteEntry(ctx context.Context, id string, reopenedAt time.Time) error
}

// EntryService records the payroll outcome of shifts.
type EntryService struct {
	store       EntryStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	onChange    func()
}

// NewEntryService constructs an entry service with the provided dependencies.
func NewEntryService(store EntryStore, idGenerator func() string, now func() time.Time) *EntryService {
	return NewEntryServiceWithLogger(store, idGenerator, now, nil)
}

// NewEntryServiceWithLogger constructs an entry service with a specified logger.
func NewEntryServiceWithLogger(store EntryStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EntryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EntryService{store: store, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// NotifyOnChange registers fn to run after every successful write.
func (s *EntryService) NotifyOnChange(fn func()) {
	s.onChange = fn
}

func (s *EntryService) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *EntryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EntryService", operation, attrs...)
}

// CreateEntry validates input, derives minutes and income and completes the
// shift. A shift that already has an entry yields ErrConflict.
func (s *EntryService) CreateEntry(ctx context.Context, params CreateEntryParams) (entry persistence.PayrollEntry, err error) {
	if s == nil {
		err = fmt.Errorf("EntryService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("entry store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEntry", "shift_id", params.ShiftID, "entry_type", string(params.Input.Type))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("entry_id", entry.ID).InfoContext(ctx, "entry created")
	}()

	vErr := validateEntryInput(params.Input)
	if strings.TrimSpace(params.ShiftID) == "" {
		vErr.add("shift_id", "shift id is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var shift persistence.Shift
	shift, err = s.store.GetShift(ctx, params.ShiftID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if shift.Status == persistence.StatusCompleted {
		err = fmt.Errorf("%w: shift %s already has an entry", ErrConflict, shift.ID)
		return
	}

	var employer persistence.Employer
	employer, err = s.store.GetEmployer(ctx, shift.EmployerID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	now := s.now()
	entry = s.buildEntry(params.Input, employer, now)
	entry.ID = s.idGenerator()
	entry.ShiftID = shift.ID
	entry.CreatedAt = now
	for i := range entry.Expenses {
		entry.Expenses[i].EntryID = entry.ID
	}

	if err = s.store.CompleteShift(ctx, entry); err != nil {
		err = mapRepoError(err)
		return
	}
	s.changed()
	return
}

// UpdateEntry recomputes an entry from input and replaces its expenses.
func (s *EntryService) UpdateEntry(ctx context.Context, params UpdateEntryParams) (entry persistence.PayrollEntry, err error) {
	if s == nil {
		err = fmt.Errorf("EntryService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("entry store not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEntry", "entry_id", params.EntryID, "entry_type", string(params.Input.Type))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "entry updated")
	}()

	vErr := validateEntryInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing persistence.PayrollEntry
	existing, err = s.store.GetEntry(ctx, params.EntryID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var shift persistence.Shift
	shift, err = s.store.GetShift(ctx, existing.ShiftID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	var employer persistence.Employer
	employer, err = s.store.GetEmployer(ctx, shift.EmployerID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	entry = s.buildEntry(params.Input, employer, s.now())
	entry.ID = existing.ID
	entry.ShiftID = existing.ShiftID
	entry.CreatedAt = existing.CreatedAt
	for i := range entry.Expenses {
		entry.Expenses[i].EntryID = entry.ID
	}

	if err = s.store.ReplaceEntry(ctx, entry); err != nil {
		err = mapRepoError(err)
		return
	}
	s.changed()
	return
}

// DeleteEntry removes an entry and returns its shift to PENDING.
func (s *EntryService) DeleteEntry(ctx context.Context, entryID string) error {
	if s == nil {
		return fmt.Errorf("EntryService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("entry store not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEntry", "entry_id", entryID)
	if err := s.store.DeleteEntry(ctx, entryID, s.now()); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete entry", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "entry deleted")
	s.changed()
	return nil
}

// GetEntry returns an entry with its expenses.
func (s *EntryService) GetEntry(ctx context.Context, entryID string) (persistence.PayrollEntry, error) {
	if s == nil || s.store == nil {
		return persistence.PayrollEntry{}, fmt.Errorf("entry store not configured")
	}
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return persistence.PayrollEntry{}, mapRepoError(err)
	}
	return entry, nil
}

// buildEntry derives the stored fields of a validated input. ID, ShiftID and
// CreatedAt are left for the caller.
func (s *EntryService) buildEntry(input EntryInput, employer persistence.Employer, now time.Time) persistence.PayrollEntry {
	entry := persistence.PayrollEntry{
		Type:         input.Type,
		TransportFee: copyIntPtr(input.TransportFee),
		Note:         normalizeOptionalString(input.Note),
		UpdatedAt:    now,
	}

	switch input.Type {
	case persistence.EntryHours:
		clockIn := strings.TrimSpace(input.ClockIn)
		clockOut := strings.TrimSpace(input.ClockOut)
		brk := payroll.Break{}
		if input.BreakStart != nil && input.BreakEnd != nil {
			brk = payroll.Break{Start: strings.TrimSpace(*input.BreakStart), End: strings.TrimSpace(*input.BreakEnd)}
		}

		var work int
		if input.BreakMinutes != nil {
			work = payroll.WorkMinutesWithBreakCount(clockIn, clockOut, *input.BreakMinutes)
			entry.BreakMinutes = copyIntPtr(input.BreakMinutes)
		} else {
			work = max(0, payroll.WorkMinutes(clockIn, clockOut, brk))
			if minutes, ok := payroll.BreakMinutes(brk); ok {
				entry.BreakMinutes = &minutes
			}
		}
		lateNight := payroll.LateNightMinutes(clockIn, clockOut, brk)

		entry.ClockIn = &clockIn
		entry.ClockOut = &clockOut
		if brk.Known() {
			entry.BreakStart = stringPointer(brk.Start)
			entry.BreakEnd = stringPointer(brk.End)
		}
		entry.WorkMinutes = &work
		entry.LateNightMinutes = &lateNight
		if employer.HourlyWage != nil && *employer.HourlyWage > 0 {
			income := payroll.IncomeWithLateNight(work, lateNight, *employer.HourlyWage)
			entry.Income = &income
		}
	case persistence.EntryIncome:
		entry.Income = copyIntPtr(input.Income)
	}

	for _, expense := range input.Expenses {
		name := strings.TrimSpace(expense.Name)
		if name == "" || expense.Amount <= 0 {
			continue
		}
		entry.Expenses = append(entry.Expenses, persistence.Expense{
			ID:        s.idGenerator(),
			Name:      name,
			Amount:    expense.Amount,
			CreatedAt: now,
		})
	}
	return entry
}

func validateEntryInput(input EntryInput) *ValidationError {
	vErr := &ValidationError{}

	switch input.Type {
	case persistence.EntryHours:
		in, inErr := payroll.ParseClock(input.ClockIn)
		if strings.TrimSpace(input.ClockIn) == "" {
			vErr.add("clock_in", "clock in is required")
		} else if inErr != nil {
			vErr.add("clock_in", "must be H:MM")
		}
		out, outErr := payroll.ParseClock(input.ClockOut)
		if strings.TrimSpace(input.ClockOut) == "" {
			vErr.add("clock_out", "clock out is required")
		} else if outErr != nil {
			vErr.add("clock_out", "must be H:MM")
		}
		if inErr == nil && outErr == nil && out <= in {
			vErr.add("clock_out", "clock out must be after clock in")
		}

		hasStart := input.BreakStart != nil && strings.TrimSpace(*input.BreakStart) != ""
		hasEnd := input.BreakEnd != nil && strings.TrimSpace(*input.BreakEnd) != ""
		if hasStart != hasEnd {
			vErr.add("break", "break start and end must be given together")
		}
		if hasStart && hasEnd {
			start, startErr := payroll.ParseClock(*input.BreakStart)
			end, endErr := payroll.ParseClock(*input.BreakEnd)
			if startErr != nil {
				vErr.add("break_start", "must be H:MM")
			}
			if endErr != nil {
				vErr.add("break_end", "must be H:MM")
			}
			if startErr == nil && endErr == nil && end < start {
				vErr.add("break_end", "break end must not precede break start")
			}
		}
		if input.BreakMinutes != nil && *input.BreakMinutes < 0 {
			vErr.add("break_minutes", "must not be negative")
		}
	case persistence.EntryIncome:
		if input.Income == nil {
			vErr.add("income", "income is required")
		} else if *input.Income < 0 {
			vErr.add("income", "must not be negative")
		}
	default:
		vErr.add("entry_type", "entry type must be HOURS or INCOME")
	}

	if input.TransportFee != nil && *input.TransportFee < 0 {
		vErr.add("transport_fee", "must not be negative")
	}
	for i, expense := range input.Expenses {
		if expense.Amount < 0 {
			vErr.add(fmt.Sprintf("expenses[%d].amount", i), "must not be negative")
		}
	}

	return vErr
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrStateConflict), errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
