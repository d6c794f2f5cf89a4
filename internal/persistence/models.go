package persistence

import "time"

// EntryStatus tracks whether a shift has a payroll entry.
type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusCompleted EntryStatus = "COMPLETED"
)

// EntryType distinguishes clocked hours from a directly entered income.
type EntryType string

const (
	EntryHours  EntryType = "HOURS"
	EntryIncome EntryType = "INCOME"
)

// Employer is a workplace. Names are unique.
type Employer struct {
	ID                  string
	Name                string
	HourlyWage          *int
	DefaultTransportFee *int
	IsOneTime           bool
	Note                *string
	Color               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Shift is a calendar event imported into the ledger. (CalendarEventID, Start)
// is unique.
type Shift struct {
	ID              string
	CalendarEventID string
	EmployerID      string
	Title           string
	Start           time.Time
	End             time.Time
	Status          EntryStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PayrollEntry records what was worked or earned for exactly one shift.
type PayrollEntry struct {
	ID               string
	ShiftID          string
	Type             EntryType
	ClockIn          *string
	ClockOut         *string
	BreakStart       *string
	BreakEnd         *string
	BreakMinutes     *int
	WorkMinutes      *int
	LateNightMinutes *int
	Income           *int
	TransportFee     *int
	Note             *string
	Expenses         []Expense
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expense is an out-of-pocket cost attached to an entry.
type Expense struct {
	ID        string
	EntryID   string
	Name      string
	Amount    int
	CreatedAt time.Time
}

// ReportRow is one completed shift with the amounts of its entry.
type ReportRow struct {
	ShiftID      string
	Start        time.Time
	EmployerID   string
	EmployerName string
	Income       int
	TransportFee int
	Expenses     int
}

// UpsertOutcome tells what UpsertEventShift did to the shift row.
type UpsertOutcome int

const (
	ShiftUnchanged UpsertOutcome = iota
	ShiftCreated
	ShiftUpdated
)

// EventShiftUpsert is the result of UpsertEventShift.
type EventShiftUpsert struct {
	Employer        Employer
	EmployerCreated bool
	Shift           Shift
	Outcome         UpsertOutcome
}
