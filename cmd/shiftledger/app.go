package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/attendance"
	"github.com/example/shift-ledger/internal/calendar"
	"github.com/example/shift-ledger/internal/config"
	"github.com/example/shift-ledger/internal/persistence/sqlite"
	"github.com/example/shift-ledger/internal/scheduler"
)

// app is the wired object graph shared by the commands.
type app struct {
	storage   *sqlite.Storage
	calendar  *calendar.Client
	sync      *application.SyncService
	scheduler *scheduler.Scheduler
	shifts    *application.ShiftService
	entries   *application.EntryService
	employers *application.EmployerService
	reports   *application.ReportService
}

// openStorage opens the ledger database and applies pending migrations.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.OpenPath(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	applied, err := storage.Migrate(ctx)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if applied > 0 {
		logger.InfoContext(ctx, "database migrations applied", "count", applied, "path", cfg.DatabasePath)
	}
	return storage, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	idGenerator := uuid.NewString
	now := time.Now

	calendarClient := calendar.NewClient(ctx, calendar.Options{
		BaseURL: cfg.CalendarURL,
		Token:   cfg.CalendarToken,
		Tag:     cfg.CalendarTag,
		Logger:  logger,
	})

	reports := application.NewReportServiceWithLogger(storage, cfg.Location, now, logger)
	entries := application.NewEntryServiceWithLogger(storage, idGenerator, now, logger)
	entries.NotifyOnChange(reports.Invalidate)
	employers := application.NewEmployerServiceWithLogger(storage, idGenerator, now, logger)
	employers.NotifyOnChange(reports.Invalidate)

	syncService := application.NewSyncServiceWithLogger(
		storage,
		calendarClient,
		attendanceSource(cfg, logger),
		application.SyncOptions{
			Location:         cfg.Location,
			AutoFillEmployer: cfg.AutoFillEmployer,
			OnChange:         func(application.SyncResult) { reports.Invalidate() },
		},
		idGenerator,
		now,
		logger,
	)

	sched, err := scheduler.New(syncService, scheduler.Options{
		Spec:       cfg.SyncSchedule,
		Location:   cfg.Location,
		RunOnStart: cfg.SyncOnStart,
		Timeout:    cfg.SyncTimeout,
	}, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	return &app{
		storage:   storage,
		calendar:  calendarClient,
		sync:      syncService,
		scheduler: sched,
		shifts:    application.NewShiftService(storage, cfg.Location, logger),
		entries:   entries,
		employers: employers,
		reports:   reports,
	}, nil
}

// attendanceSource returns the portal scraper, or nil when auto-fill is not
// configured.
func attendanceSource(cfg config.Config, logger *slog.Logger) application.AttendanceSource {
	if cfg.AutoFillEmployer == "" || !cfg.AttendanceConfigured() {
		logger.Info("attendance auto-fill disabled", "job_name_set", cfg.AutoFillEmployer != "", "credentials_set", cfg.AttendanceConfigured())
		return nil
	}
	browser := attendance.NewChromeBrowser(attendance.ChromeOptions{ExecPath: cfg.ChromePath})
	return attendance.NewPortalScraper(browser, attendance.Credentials{
		Email:      cfg.AttendanceEmail,
		Password:   cfg.AttendancePassword,
		EmployeeID: cfg.AttendanceEmployeeID,
	}, attendance.Options{
		LoginURL:    cfg.AttendanceLoginURL,
		BaseURL:     cfg.AttendanceBaseURL,
		SettleDelay: attendance.DefaultSettleDelay,
	}, logger)
}

func (a *app) Close(logger *slog.Logger) {
	if a == nil || a.storage == nil {
		return
	}
	if err := a.storage.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}
