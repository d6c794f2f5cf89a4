package persistence

import (
	"context"
	"time"
)

// EmployerRepository stores employers.
type EmployerRepository interface {
	CreateEmployer(ctx context.Context, employer Employer) error
	UpdateEmployer(ctx context.Context, employer Employer) error
	GetEmployer(ctx context.Context, id string) (Employer, error)
	GetEmployerByName(ctx context.Context, name string) (Employer, error)
	ListEmployers(ctx context.Context) ([]Employer, error)
	// DeleteEmployer fails with ErrForeignKeyViolation while shifts reference it.
	DeleteEmployer(ctx context.Context, id string) error
	CountShiftsForEmployer(ctx context.Context, id string) (int, error)
}

// ShiftFilter narrows shift listings. Zero values match everything. The range
// is half-open: StartsFrom <= start < StartsBefore.
type ShiftFilter struct {
	EmployerID   string
	Status       EntryStatus
	StartsFrom   *time.Time
	StartsBefore *time.Time
}

// ShiftRepository stores shifts imported from the calendar.
type ShiftRepository interface {
	CreateShift(ctx context.Context, shift Shift) error
	GetShift(ctx context.Context, id string) (Shift, error)
	GetShiftByEvent(ctx context.Context, calendarEventID string, start time.Time) (Shift, error)
	// ListShifts returns matches ordered by start ascending.
	ListShifts(ctx context.Context, filter ShiftFilter) ([]Shift, error)
	// DeleteShifts removes the shifts with their entries and expenses in one
	// transaction and returns the number of shifts removed.
	DeleteShifts(ctx context.Context, ids []string) (int, error)
}

// EventShiftWriter applies one calendar event to the ledger.
type EventShiftWriter interface {
	// UpsertEventShift resolves employer by name, creating it when new, and
	// inserts shift or updates the end time and title of the stored shift with
	// the same (CalendarEventID, Start), all in one transaction. The IDs of
	// employer and shift are used only for inserted rows.
	UpsertEventShift(ctx context.Context, employer Employer, shift Shift) (EventShiftUpsert, error)
}

// EntryRepository stores payroll entries and their expenses.
type EntryRepository interface {
	// CompleteShift inserts entry with its expenses and flips the shift from
	// PENDING to COMPLETED atomically. A shift that is not PENDING yields
	// ErrStateConflict.
	CompleteShift(ctx context.Context, entry PayrollEntry) error
	GetEntry(ctx context.Context, id string) (PayrollEntry, error)
	GetEntryByShift(ctx context.Context, shiftID string) (PayrollEntry, error)
	// ReplaceEntry overwrites the entry fields and replaces its expenses.
	ReplaceEntry(ctx context.Context, entry PayrollEntry) error
	// DeleteEntry removes the entry and returns its shift to PENDING.
	DeleteEntry(ctx context.Context, id string, reopenedAt time.Time) error
	// ListReportRows returns completed shifts starting in [from, to).
	ListReportRows(ctx context.Context, from, to time.Time) ([]ReportRow, error)
}
