package testfixtures

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/shift-ledger/internal/attendance"
	"github.com/example/shift-ledger/internal/calendar"
)

// EventSource serves canned calendar events per year.
type EventSource struct {
	mu     sync.Mutex
	events map[int][]calendar.Event
	errs   map[int]error
	calls  []int
}

// NewEventSource returns an empty EventSource.
func NewEventSource() *EventSource {
	return &EventSource{events: map[int][]calendar.Event{}, errs: map[int]error{}}
}

// Add files events under the calendar year of their start in the ledger zone.
func (s *EventSource) Add(events ...calendar.Event) *EventSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range events {
		year := event.Start.In(Tokyo()).Year()
		s.events[year] = append(s.events[year], event)
	}
	return s
}

// Reset drops every stored event.
func (s *EventSource) Reset() {
	s.mu.Lock()
	s.events = map[int][]calendar.Event{}
	s.mu.Unlock()
}

// Fail makes FetchEvents for year return err.
func (s *EventSource) Fail(year int, err error) {
	s.mu.Lock()
	s.errs[year] = err
	s.mu.Unlock()
}

// FetchEvents implements application.EventSource.
func (s *EventSource) FetchEvents(ctx context.Context, year int) ([]calendar.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, year)
	if err := s.errs[year]; err != nil {
		return nil, err
	}
	return append([]calendar.Event(nil), s.events[year]...), nil
}

// Calls returns the years fetched so far.
func (s *EventSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

// AttendanceSource serves canned portal records per month.
type AttendanceSource struct {
	mu      sync.Mutex
	records map[string][]attendance.Record
	errs    map[string]error
	calls   []string
}

// NewAttendanceSource returns an empty AttendanceSource.
func NewAttendanceSource() *AttendanceSource {
	return &AttendanceSource{records: map[string][]attendance.Record{}, errs: map[string]error{}}
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// Add stores records for the month.
func (s *AttendanceSource) Add(year, month int, records ...attendance.Record) *AttendanceSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := monthKey(year, month)
	s.records[key] = append(s.records[key], records...)
	return s
}

// Fail makes Scrape for the month return err.
func (s *AttendanceSource) Fail(year, month int, err error) {
	s.mu.Lock()
	s.errs[monthKey(year, month)] = err
	s.mu.Unlock()
}

// Scrape implements application.AttendanceSource.
func (s *AttendanceSource) Scrape(ctx context.Context, year, month int) ([]attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := monthKey(year, month)
	s.calls = append(s.calls, key)
	if err := s.errs[key]; err != nil {
		return nil, err
	}
	return append([]attendance.Record(nil), s.records[key]...), nil
}

// Calls returns the months scraped so far as "YYYY-MM".
func (s *AttendanceSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
