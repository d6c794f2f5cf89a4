package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/shift-ledger/internal/attendance"
	"github.com/example/shift-ledger/internal/calendar"
	"github.com/example/shift-ledger/internal/payroll"
	"github.com/example/shift-ledger/internal/persistence"
)

// AutoFillNote marks entries created from scraped attendance.
const AutoFillNote = "勤怠自動入力"

// EventSource lists the tagged calendar events of one year.
type EventSource interface {
	FetchEvents(ctx context.Context, year int) ([]calendar.Event, error)
}

// AttendanceSource returns the attendance records of one worked month.
type AttendanceSource interface {
	Scrape(ctx context.Context, year, month int) ([]attendance.Record, error)
}

// SyncStore captures the ledger operations used by the reconciler.
type SyncStore interface {
	UpsertEventShift(ctx context.Context, employer persistence.Employer, shift persistence.Shift) (persistence.EventShiftUpsert, error)
	GetEmployerByName(ctx context.Context, name string) (persistence.Employer, error)
	ListShifts(ctx context.Context, filter persistence.ShiftFilter) ([]persistence.Shift, error)
	DeleteShifts(ctx context.Context, ids []string) (int, error)
	CompleteShift(ctx context.Context, entry persistence.PayrollEntry) error
}

// SyncOptions configures a SyncService.
type SyncOptions struct {
	// Location decides the current year and which prior-year events fall in
	// December. UTC is used when nil.
	Location *time.Location
	// AutoFillEmployer names the employer whose pending shifts are filled from
	// attendance records. Empty disables auto-fill.
	AutoFillEmployer string
	// OnChange is called after a run that wrote to the ledger.
	OnChange func(SyncResult)
}

// SyncService reconciles calendar events with the shift ledger and fills
// pending shifts from attendance records.
type SyncService struct {
	store       SyncStore
	events      EventSource
	attendance  AttendanceSource
	options     SyncOptions
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	mu    sync.Mutex
	state SyncState
}

// NewSyncService constructs a sync service. A nil attendance source disables
// auto-fill.
func NewSyncService(store SyncStore, events EventSource, attendance AttendanceSource, options SyncOptions, idGenerator func() string, now func() time.Time) *SyncService {
	return NewSyncServiceWithLogger(store, events, attendance, options, idGenerator, now, nil)
}

// NewSyncServiceWithLogger constructs a sync service with a specified logger.
func NewSyncServiceWithLogger(store SyncStore, events EventSource, attendance AttendanceSource, options SyncOptions, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SyncService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	return &SyncService{
		store:       store,
		events:      events,
		attendance:  attendance,
		options:     options,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		state:       SyncIdle,
	}
}

func (s *SyncService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SyncService", operation, attrs...)
}

// State returns the phase of the current or most recent run.
func (s *SyncService) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SyncService) enter(ctx context.Context, logger *slog.Logger, state SyncState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	logger.DebugContext(ctx, "sync state changed", "state", string(state))
}

// Trigger runs Sync and folds a failure into the result.
func (s *SyncService) Trigger(ctx context.Context) SyncResult {
	result, err := s.Sync(ctx)
	if err != nil {
		return SyncResult{Success: false, Error: err.Error()}
	}
	return result
}

// Sync fetches the current and prior calendar years, upserts their events as
// shifts, deletes shifts that disappeared upstream inside the sync window and
// then auto-fills pending shifts from attendance records. Only a failure to
// read the calendar or to write the ledger fails the run; auto-fill problems
// are logged and AutoFilled counts the entries committed before them.
func (s *SyncService) Sync(ctx context.Context) (result SyncResult, err error) {
	if s == nil {
		err = fmt.Errorf("SyncService is nil")
		return
	}
	if s.store == nil || s.events == nil {
		err = fmt.Errorf("sync dependencies not configured")
		return
	}

	startedAt := s.now()
	year := startedAt.In(s.options.Location).Year()
	logger := s.loggerWith(ctx, "Sync", "year", year)
	defer func() {
		if result.Changed() && s.options.OnChange != nil {
			s.options.OnChange(result)
		}
		if err != nil {
			s.enter(ctx, logger, SyncFailed)
			logger.ErrorContext(ctx, "sync failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		result.Success = true
		s.enter(ctx, logger, SyncDone)
		logger.InfoContext(ctx, "sync completed",
			"created", result.Created,
			"updated", result.Updated,
			"deleted", result.Deleted,
			"auto_filled", result.AutoFilled,
			"duration", s.now().Sub(startedAt),
		)
	}()

	s.enter(ctx, logger, SyncFetchingEvents)
	current, prior, err := s.fetchEvents(ctx, year)
	if err != nil {
		return
	}

	s.enter(ctx, logger, SyncReconciling)
	events, keys := s.workingSet(current, prior)
	for _, event := range events {
		if event.JobName == nil {
			logger.DebugContext(ctx, "event without job name skipped", "event_id", event.ID, "title", event.Title)
			continue
		}
		var outcome persistence.UpsertOutcome
		outcome, err = s.upsertShift(ctx, logger, event)
		if err != nil {
			return
		}
		switch outcome {
		case persistence.ShiftCreated:
			result.Created++
		case persistence.ShiftUpdated:
			result.Updated++
		}
	}

	result.Deleted, err = s.deleteStaleShifts(ctx, logger, year, keys)
	if err != nil {
		return
	}

	s.enter(ctx, logger, SyncAutoFilling)
	filled, fillErr := s.autoFill(ctx, logger)
	if fillErr != nil {
		logger.WarnContext(ctx, "attendance auto-fill aborted", "error", fillErr, "error_kind", ErrorKind(fillErr), "auto_filled", filled)
	}
	result.AutoFilled = filled
	return
}

func (s *SyncService) fetchEvents(ctx context.Context, year int) (current, prior []calendar.Event, err error) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		events, fetchErr := s.events.FetchEvents(groupCtx, year)
		if fetchErr != nil {
			return fmt.Errorf("failed to fetch events for %d: %w", year, fetchErr)
		}
		current = events
		return nil
	})
	group.Go(func() error {
		events, fetchErr := s.events.FetchEvents(groupCtx, year-1)
		if fetchErr != nil {
			return fmt.Errorf("failed to fetch events for %d: %w", year-1, fetchErr)
		}
		prior = events
		return nil
	})
	err = group.Wait()
	return
}

// workingSet keeps the prior year's December events plus every current-year
// event, dropping repeated keys. The key set includes events without a job
// name so that they never count as removed upstream.
func (s *SyncService) workingSet(current, prior []calendar.Event) ([]calendar.Event, map[string]struct{}) {
	candidates := make([]calendar.Event, 0, len(prior)+len(current))
	for _, event := range prior {
		if event.Start.In(s.options.Location).Month() == time.December {
			candidates = append(candidates, event)
		}
	}
	candidates = append(candidates, current...)

	keys := make(map[string]struct{}, len(candidates))
	events := candidates[:0]
	for _, event := range candidates {
		key := event.Key()
		if _, seen := keys[key]; seen {
			continue
		}
		keys[key] = struct{}{}
		events = append(events, event)
	}
	return events, keys
}

// upsertShift applies event to the ledger in one store transaction.
func (s *SyncService) upsertShift(ctx context.Context, logger *slog.Logger, event calendar.Event) (persistence.UpsertOutcome, error) {
	now := s.now()
	out, err := s.store.UpsertEventShift(ctx,
		persistence.Employer{
			ID:        s.idGenerator(),
			Name:      *event.JobName,
			CreatedAt: now,
			UpdatedAt: now,
		},
		persistence.Shift{
			ID:              s.idGenerator(),
			CalendarEventID: event.ID,
			Title:           event.Title,
			Start:           event.Start,
			End:             event.End,
			Status:          persistence.StatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	)
	if err != nil {
		return persistence.ShiftUnchanged, fmt.Errorf("failed to upsert shift for event %s (employer %q): %w", event.Key(), *event.JobName, err)
	}
	if out.EmployerCreated {
		logger.InfoContext(ctx, "employer created", "employer_id", out.Employer.ID, "employer_name", out.Employer.Name)
	}
	return out.Outcome, nil
}

func (s *SyncService) deleteStaleShifts(ctx context.Context, logger *slog.Logger, year int, keys map[string]struct{}) (int, error) {
	window := payroll.SyncWindow(year, s.options.Location)
	shifts, err := s.store.ListShifts(ctx, persistence.ShiftFilter{
		StartsFrom:   &window.Start,
		StartsBefore: &window.End,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list shifts in sync window: %w", err)
	}

	var stale []string
	for _, shift := range shifts {
		if _, ok := keys[calendar.EventKey(shift.CalendarEventID, shift.Start)]; !ok {
			stale = append(stale, shift.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	deleted, err := s.store.DeleteShifts(ctx, stale)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %d removed shifts: %w", len(stale), err)
	}
	logger.InfoContext(ctx, "removed shifts deleted", "deleted", deleted)
	return deleted, nil
}

type yearMonth struct {
	year  int
	month time.Month
}

func (s *SyncService) autoFill(ctx context.Context, logger *slog.Logger) (int, error) {
	if s.attendance == nil || s.options.AutoFillEmployer == "" {
		logger.DebugContext(ctx, "attendance auto-fill disabled")
		return 0, nil
	}
	logger = logger.With("employer_name", s.options.AutoFillEmployer)

	employer, err := s.store.GetEmployerByName(ctx, s.options.AutoFillEmployer)
	if errors.Is(err, persistence.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load auto-fill employer: %w", err)
	}

	pending, err := s.store.ListShifts(ctx, persistence.ShiftFilter{
		EmployerID: employer.ID,
		Status:     persistence.StatusPending,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending shifts: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var months []yearMonth
	seen := make(map[yearMonth]bool)
	for _, shift := range pending {
		year, month := payroll.LocalYearMonth(shift.Start)
		ym := yearMonth{year: year, month: month}
		if !seen[ym] {
			seen[ym] = true
			months = append(months, ym)
		}
	}

	records := make(map[string]attendance.Record)
	for _, ym := range months {
		scraped, err := s.attendance.Scrape(ctx, ym.year, int(ym.month))
		if err != nil {
			var authErr *attendance.AuthError
			switch {
			case errors.Is(err, attendance.ErrMissingCredentials):
				logger.InfoContext(ctx, "attendance credentials not configured, auto-fill skipped")
				return 0, nil
			case errors.As(err, &authErr), ctx.Err() != nil:
				return 0, err
			}
			logger.WarnContext(ctx, "failed to scrape attendance month",
				"year", ym.year,
				"month", int(ym.month),
				"error", err,
				"error_kind", ErrorKind(err),
			)
			continue
		}
		for _, record := range scraped {
			if record.Complete() {
				records[record.Date] = record
			}
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	filled := 0
	for _, shift := range pending {
		date := payroll.LocalDate(shift.Start)
		record, ok := records[date]
		if !ok {
			continue
		}
		entry, ok := s.entryFromAttendance(shift, employer, record)
		if !ok {
			logger.WarnContext(ctx, "malformed attendance record ignored", "date", date, "clock_in", record.ClockIn, "clock_out", record.ClockOut)
			continue
		}
		if err := s.store.CompleteShift(ctx, entry); err != nil {
			if ctx.Err() != nil {
				return filled, ctx.Err()
			}
			logger.WarnContext(ctx, "failed to auto-fill shift", "shift_id", shift.ID, "date", date, "error", err)
			continue
		}
		logger.InfoContext(ctx, "shift auto-filled", "shift_id", shift.ID, "date", date, "clock_in", record.ClockIn, "clock_out", record.ClockOut)
		filled++
	}
	return filled, nil
}

// entryFromAttendance computes an HOURS entry for shift. It reports false when
// the record holds times that do not parse.
func (s *SyncService) entryFromAttendance(shift persistence.Shift, employer persistence.Employer, record attendance.Record) (persistence.PayrollEntry, bool) {
	for _, value := range []string{record.ClockIn, record.ClockOut} {
		if _, err := payroll.ParseClock(value); err != nil {
			return persistence.PayrollEntry{}, false
		}
	}
	brk := payroll.Break{Start: record.BreakStart, End: record.BreakEnd}
	if brk.Known() {
		if _, err := payroll.ParseClock(brk.Start); err != nil {
			brk = payroll.Break{}
		} else if _, err := payroll.ParseClock(brk.End); err != nil {
			brk = payroll.Break{}
		}
	}

	clockIn := record.ClockIn
	clockOut := payroll.NormalizeOvernight(record.ClockIn, record.ClockOut)
	work := max(0, payroll.WorkMinutes(clockIn, clockOut, brk))
	lateNight := payroll.LateNightMinutes(clockIn, clockOut, brk)

	now := s.now()
	entry := persistence.PayrollEntry{
		ID:               s.idGenerator(),
		ShiftID:          shift.ID,
		Type:             persistence.EntryHours,
		ClockIn:          &clockIn,
		ClockOut:         &clockOut,
		WorkMinutes:      &work,
		LateNightMinutes: &lateNight,
		TransportFee:     copyIntPtr(employer.DefaultTransportFee),
		Note:             stringPointer(AutoFillNote),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if minutes, ok := payroll.BreakMinutes(brk); ok {
		entry.BreakStart = stringPointer(brk.Start)
		entry.BreakEnd = stringPointer(brk.End)
		entry.BreakMinutes = &minutes
	}
	if employer.HourlyWage != nil && *employer.HourlyWage > 0 {
		income := payroll.IncomeWithLateNight(work, lateNight, *employer.HourlyWage)
		entry.Income = &income
	}
	return entry, true
}

func stringPointer(value string) *string {
	return &value
}

func copyIntPtr(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
