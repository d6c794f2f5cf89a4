package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/shift-ledger/internal/attendance"
	"github.com/example/shift-ledger/internal/calendar"
	"github.com/example/shift-ledger/internal/persistence"
)

var (
	employerCounter uint64
	shiftCounter    uint64
	entryCounter    uint64
	eventCounter    uint64
)

// 2024-06-01 20:00 in the ledger zone, the default nightly sync slot.
var referenceTime = time.Date(2024, time.June, 1, 11, 0, 0, 0, time.UTC)

var tokyo = time.FixedZone("JST", 9*60*60)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Tokyo returns a fixed +09:00 zone so tests do not depend on tzdata.
func Tokyo() *time.Location {
	return tokyo
}

// LocalTime builds a time in the ledger zone.
func LocalTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, tokyo)
}

func intPtr(v int) *int { return &v }

func stringPtr(v string) *string { return &v }

// --------------------------- Employer fixtures ---------------------------

// EmployerFixture is a deterministic employer.
type EmployerFixture struct {
	ID                  string
	Name                string
	HourlyWage          *int
	DefaultTransportFee *int
	IsOneTime           bool
	CreatedAt           time.Time
}

// EmployerOption configures an EmployerFixture.
type EmployerOption func(*EmployerFixture)

// NewEmployerFixture returns an employer paying 1,000 an hour with no
// transport fee.
func NewEmployerFixture(opts ...EmployerOption) EmployerFixture {
	idx := atomic.AddUint64(&employerCounter, 1)
	fixture := EmployerFixture{
		ID:         fmt.Sprintf("employer-%03d", idx),
		Name:       fmt.Sprintf("Employer %03d", idx),
		HourlyWage: intPtr(1000),
		CreatedAt:  referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEmployerID overrides the generated employer ID.
func WithEmployerID(id string) EmployerOption {
	return func(f *EmployerFixture) { f.ID = id }
}

// WithEmployerName overrides the generated name.
func WithEmployerName(name string) EmployerOption {
	return func(f *EmployerFixture) { f.Name = name }
}

// WithHourlyWage sets the wage. A negative value clears it.
func WithHourlyWage(wage int) EmployerOption {
	return func(f *EmployerFixture) {
		if wage < 0 {
			f.HourlyWage = nil
			return
		}
		f.HourlyWage = intPtr(wage)
	}
}

// WithDefaultTransportFee sets the default transport fee.
func WithDefaultTransportFee(fee int) EmployerOption {
	return func(f *EmployerFixture) { f.DefaultTransportFee = intPtr(fee) }
}

// WithOneTime marks the employer as a one-off job.
func WithOneTime() EmployerOption {
	return func(f *EmployerFixture) { f.IsOneTime = true }
}

// Persistence returns the fixture as a persistence.Employer.
func (f EmployerFixture) Persistence() persistence.Employer {
	return persistence.Employer{
		ID:                  f.ID,
		Name:                f.Name,
		HourlyWage:          f.HourlyWage,
		DefaultTransportFee: f.DefaultTransportFee,
		IsOneTime:           f.IsOneTime,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.CreatedAt,
	}
}

// ---------------------------- Shift fixtures -----------------------------

// ShiftFixture is a deterministic shift.
type ShiftFixture struct {
	ID              string
	CalendarEventID string
	EmployerID      string
	Title           string
	Start           time.Time
	End             time.Time
	Status          persistence.EntryStatus
}

// ShiftOption configures a ShiftFixture.
type ShiftOption func(*ShiftFixture)

// NewShiftFixture returns a pending 09:00 to 18:00 shift on 2024-05-10 in the
// ledger zone. The employer must be set before persisting.
func NewShiftFixture(opts ...ShiftOption) ShiftFixture {
	idx := atomic.AddUint64(&shiftCounter, 1)
	start := LocalTime(2024, time.May, 10, 9, 0)
	fixture := ShiftFixture{
		ID:              fmt.Sprintf("shift-%03d", idx),
		CalendarEventID: fmt.Sprintf("event-%03d@google.com", idx),
		Title:           calendar.DefaultTag + " fixture",
		Start:           start,
		End:             start.Add(9 * time.Hour),
		Status:          persistence.StatusPending,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithShiftID overrides the generated shift ID.
func WithShiftID(id string) ShiftOption {
	return func(f *ShiftFixture) { f.ID = id }
}

// WithShiftEmployer sets the employer reference.
func WithShiftEmployer(employerID string) ShiftOption {
	return func(f *ShiftFixture) { f.EmployerID = employerID }
}

// WithShiftEvent overrides the calendar event ID.
func WithShiftEvent(eventID string) ShiftOption {
	return func(f *ShiftFixture) { f.CalendarEventID = eventID }
}

// WithShiftWindow sets the start and end.
func WithShiftWindow(start, end time.Time) ShiftOption {
	return func(f *ShiftFixture) {
		f.Start = start
		f.End = end
	}
}

// WithShiftStatus overrides the entry status.
func WithShiftStatus(status persistence.EntryStatus) ShiftOption {
	return func(f *ShiftFixture) { f.Status = status }
}

// Persistence returns the fixture as a persistence.Shift.
func (f ShiftFixture) Persistence() persistence.Shift {
	return persistence.Shift{
		ID:              f.ID,
		CalendarEventID: f.CalendarEventID,
		EmployerID:      f.EmployerID,
		Title:           f.Title,
		Start:           f.Start.UTC(),
		End:             f.End.UTC(),
		Status:          f.Status,
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
}

// Event returns the calendar event the shift would have been imported from.
func (f ShiftFixture) Event(jobName string) calendar.Event {
	return calendar.Event{
		ID:      f.CalendarEventID,
		Title:   calendar.DefaultTag + " " + jobName,
		JobName: stringPtr(jobName),
		Start:   f.Start.UTC(),
		End:     f.End.UTC(),
	}
}

// ---------------------------- Entry fixtures -----------------------------

// EntryFixture is a deterministic payroll entry.
type EntryFixture struct {
	ID           string
	ShiftID      string
	Type         persistence.EntryType
	ClockIn      string
	ClockOut     string
	WorkMinutes  int
	Income       int
	TransportFee *int
	Expenses     []persistence.Expense
}

// EntryOption configures an EntryFixture.
type EntryOption func(*EntryFixture)

// NewEntryFixture returns an HOURS entry worth 8,000 for eight hours.
func NewEntryFixture(shiftID string, opts ...EntryOption) EntryFixture {
	idx := atomic.AddUint64(&entryCounter, 1)
	fixture := EntryFixture{
		ID:          fmt.Sprintf("entry-%03d", idx),
		ShiftID:     shiftID,
		Type:        persistence.EntryHours,
		ClockIn:     "9:00",
		ClockOut:    "17:00",
		WorkMinutes: 480,
		Income:      8000,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEntryID overrides the generated entry ID.
func WithEntryID(id string) EntryOption {
	return func(f *EntryFixture) { f.ID = id }
}

// WithIncomeOnly turns the fixture into an INCOME entry of amount.
func WithIncomeOnly(amount int) EntryOption {
	return func(f *EntryFixture) {
		f.Type = persistence.EntryIncome
		f.ClockIn, f.ClockOut, f.WorkMinutes = "", "", 0
		f.Income = amount
	}
}

// WithEntryTransportFee sets the transport fee.
func WithEntryTransportFee(fee int) EntryOption {
	return func(f *EntryFixture) { f.TransportFee = intPtr(fee) }
}

// WithExpense attaches an expense. IDs derive from the entry ID.
func WithExpense(name string, amount int) EntryOption {
	return func(f *EntryFixture) {
		f.Expenses = append(f.Expenses, persistence.Expense{
			ID:        fmt.Sprintf("%s-expense-%d", f.ID, len(f.Expenses)+1),
			Name:      name,
			Amount:    amount,
			CreatedAt: referenceTime,
		})
	}
}

// Persistence returns the fixture as a persistence.PayrollEntry.
func (f EntryFixture) Persistence() persistence.PayrollEntry {
	entry := persistence.PayrollEntry{
		ID:           f.ID,
		ShiftID:      f.ShiftID,
		Type:         f.Type,
		Income:       intPtr(f.Income),
		TransportFee: f.TransportFee,
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	if f.Type == persistence.EntryHours {
		entry.ClockIn = stringPtr(f.ClockIn)
		entry.ClockOut = stringPtr(f.ClockOut)
		entry.WorkMinutes = intPtr(f.WorkMinutes)
		entry.LateNightMinutes = intPtr(0)
	}
	for _, expense := range f.Expenses {
		expense.EntryID = f.ID
		entry.Expenses = append(entry.Expenses, expense)
	}
	return entry
}

// ---------------------------- Event fixtures -----------------------------

// EventOption configures a calendar event fixture.
type EventOption func(*calendar.Event)

// NewEvent returns a tagged event for jobName starting at start and lasting
// hours.
func NewEvent(jobName string, start time.Time, hours int, opts ...EventOption) calendar.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	event := calendar.Event{
		ID:      fmt.Sprintf("cal-%03d@google.com", idx),
		Title:   calendar.DefaultTag + " " + jobName,
		JobName: stringPtr(jobName),
		Start:   start.UTC(),
		End:     start.Add(time.Duration(hours) * time.Hour).UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(e *calendar.Event) { e.ID = id }
}

// WithoutJobName drops the job name, as for events whose tag has no text.
func WithoutJobName() EventOption {
	return func(e *calendar.Event) {
		e.Title = calendar.DefaultTag
		e.JobName = nil
	}
}

// AttendanceRecord builds a complete scraped record for date ("2006-01-02").
func AttendanceRecord(date, clockIn, clockOut string) attendance.Record {
	return attendance.Record{Date: date, ClockIn: clockIn, ClockOut: clockOut}
}
