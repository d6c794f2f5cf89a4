// Package scheduler runs the ledger sync once a day and on demand while
// guaranteeing that at most one run is in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/shift-ledger/internal/application"
)

// DefaultSpec fires at 20:00 every day in the scheduler location.
const DefaultSpec = "0 20 * * *"

// ErrRunInProgress is returned when a trigger arrives while a run is active.
var ErrRunInProgress = errors.New("scheduler: sync already running")

// Runner performs one sync run.
type Runner interface {
	Trigger(ctx context.Context) application.SyncResult
}

// Options configures a Scheduler.
type Options struct {
	// Spec is a five-field cron expression. DefaultSpec when empty.
	Spec string
	// Location interprets Spec. UTC when nil.
	Location *time.Location
	// RunOnStart triggers one run as soon as Start is called.
	RunOnStart bool
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

// Run describes a finished run.
type Run struct {
	Label    string
	Started  time.Time
	Finished time.Time
	Result   application.SyncResult
}

// Scheduler owns the daily cron entry and the run-in-progress guard.
type Scheduler struct {
	runner   Runner
	cron     *cron.Cron
	spec     string
	schedule cron.Schedule
	options  Options
	logger   *slog.Logger
	now      func() time.Time

	running sync.Mutex

	mu   sync.Mutex
	last *Run
}

// New validates the cron spec and builds a stopped scheduler.
func New(runner Runner, options Options, logger *slog.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler: runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	spec := options.Spec
	if spec == "" {
		spec = DefaultSpec
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}

	logger = logger.With("component", "scheduler")
	cronLog := cronLogger{logger: logger}
	return &Scheduler{
		runner:   runner,
		spec:     spec,
		schedule: schedule,
		options:  options,
		logger:   logger,
		now:      time.Now,
		cron: cron.New(
			cron.WithLocation(options.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
	}, nil
}

// Start registers the daily job and starts the cron loop. Jobs run with ctx,
// so cancelling it aborts an active run.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunNow(ctx, "cron"); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.ErrorContext(ctx, "scheduled sync failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: failed to register job: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started", "spec", s.spec, "location", s.options.Location.String(), "next", s.Next())

	if s.options.RunOnStart {
		go func() {
			if _, err := s.RunNow(ctx, "startup"); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.logger.ErrorContext(ctx, "startup sync failed", "error", err)
			}
		}()
	}
	return nil
}

// RunNow performs a sync immediately unless one is already running, in which
// case ErrRunInProgress is returned. A run whose result is unsuccessful is
// reported through the returned result, not the error.
func (s *Scheduler) RunNow(ctx context.Context, label string) (application.SyncResult, error) {
	if !s.running.TryLock() {
		s.logger.WarnContext(ctx, "sync skipped, previous run still active", "trigger", label)
		return application.SyncResult{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	if err := ctx.Err(); err != nil {
		return application.SyncResult{}, err
	}

	runCtx := ctx
	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	run := Run{Label: label, Started: s.now()}
	s.logger.InfoContext(ctx, "sync triggered", "trigger", label)
	run.Result = s.runner.Trigger(runCtx)
	run.Finished = s.now()

	s.mu.Lock()
	s.last = &run
	s.mu.Unlock()

	logger := s.logger.With(
		"trigger", label,
		"duration_ms", run.Finished.Sub(run.Started).Milliseconds(),
		"created", run.Result.Created,
		"updated", run.Result.Updated,
		"deleted", run.Result.Deleted,
		"auto_filled", run.Result.AutoFilled,
	)
	if run.Result.Success {
		logger.InfoContext(ctx, "sync finished")
	} else {
		logger.WarnContext(ctx, "sync finished with failure", "error", run.Result.Error)
	}
	return run.Result, nil
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

// LastRun returns the most recent finished run.
func (s *Scheduler) LastRun() (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Run{}, false
	}
	return *s.last, true
}

// Next returns the next activation after the current time.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.now().In(s.options.Location))
}

// Stop halts the cron loop. The returned context is done once a running
// scheduled job has returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
