package application

import (
	"time"

	"github.com/example/shift-ledger/internal/persistence"
)

// SyncState names the phases of one sync run.
type SyncState string

const (
	SyncIdle           SyncState = "idle"
	SyncFetchingEvents SyncState = "fetching_events"
	SyncReconciling    SyncState = "reconciling"
	SyncAutoFilling    SyncState = "auto_filling"
	SyncDone           SyncState = "done"
	SyncFailed         SyncState = "failed"
)

// SyncResult reports what one sync run changed in the ledger.
type SyncResult struct {
	Success    bool
	Created    int
	Updated    int
	Deleted    int
	AutoFilled int
	// Error carries the failure message when Success is false.
	Error string
}

// Changed reports whether the run wrote anything to the ledger.
func (r SyncResult) Changed() bool {
	return r.Created+r.Updated+r.Deleted+r.AutoFilled > 0
}

// ExpenseInput is one caller supplied expense line.
type ExpenseInput struct {
	Name   string
	Amount int
}

// EntryInput captures caller provided payroll entry fields. Clock fields are
// only read for HOURS entries, Income only for INCOME entries.
type EntryInput struct {
	Type         persistence.EntryType
	ClockIn      string
	ClockOut     string
	BreakStart   *string
	BreakEnd     *string
	BreakMinutes *int
	Income       *int
	TransportFee *int
	Note         *string
	Expenses     []ExpenseInput
}

// CreateEntryParams wraps the data required to complete a shift.
type CreateEntryParams struct {
	ShiftID string
	Input   EntryInput
}

// UpdateEntryParams wraps the data required to rewrite an entry.
type UpdateEntryParams struct {
	EntryID string
	Input   EntryInput
}

// EmployerInput captures caller provided employer fields.
type EmployerInput struct {
	Name                string
	HourlyWage          *int
	DefaultTransportFee *int
	IsOneTime           bool
	Note                *string
	Color               *string
}

// UpdateEmployerParams wraps the data required to update an employer.
type UpdateEmployerParams struct {
	EmployerID string
	Input      EmployerInput
}

// IncomeReport summarizes one fiscal year of completed shifts.
type IncomeReport struct {
	Year      int
	Start     time.Time
	End       time.Time
	Total     int
	Months    []MonthTotal
	Employers []EmployerTotal
}

// MonthTotal is the income of one calendar month, December of the prior year first.
type MonthTotal struct {
	Year   int
	Month  time.Month
	Total  int
	Shifts int
}

// EmployerTotal is the income earned at one employer.
type EmployerTotal struct {
	EmployerID   string
	EmployerName string
	Total        int
	Shifts       int
}
