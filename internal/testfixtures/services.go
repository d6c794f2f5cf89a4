package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/shift-ledger/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults: the reference
// clock, "id" identifiers and the +09:00 ledger zone.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    Tokyo(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = Tokyo()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation overrides the ledger zone.
func WithLocation(location *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = location
	}
}

// SyncServiceDeps captures dependencies for constructing a sync service.
type SyncServiceDeps struct {
	Store            application.SyncStore
	Events           application.EventSource
	Attendance       application.AttendanceSource
	AutoFillEmployer string
	OnChange         func(application.SyncResult)
	Logger           *slog.Logger
}

// NewSyncService builds a sync service using the factory clock, IDs and zone.
func (f *ServiceFactory) NewSyncService(deps SyncServiceDeps) *application.SyncService {
	return application.NewSyncServiceWithLogger(
		deps.Store,
		deps.Events,
		deps.Attendance,
		application.SyncOptions{
			Location:         f.Location,
			AutoFillEmployer: deps.AutoFillEmployer,
			OnChange:         deps.OnChange,
		},
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.Logger,
	)
}

// EntryServiceDeps captures dependencies for constructing an entry service.
type EntryServiceDeps struct {
	Store  application.EntryStore
	Logger *slog.Logger
}

// NewEntryService builds an entry service.
func (f *ServiceFactory) NewEntryService(deps EntryServiceDeps) *application.EntryService {
	return application.NewEntryServiceWithLogger(deps.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), deps.Logger)
}

// EmployerServiceDeps captures dependencies for constructing an employer service.
type EmployerServiceDeps struct {
	Employers application.EmployerRepository
	Logger    *slog.Logger
}

// NewEmployerService builds an employer service.
func (f *ServiceFactory) NewEmployerService(deps EmployerServiceDeps) *application.EmployerService {
	return application.NewEmployerServiceWithLogger(deps.Employers, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), deps.Logger)
}

// ReportServiceDeps captures dependencies for constructing a report service.
type ReportServiceDeps struct {
	Store  application.ReportStore
	Logger *slog.Logger
}

// NewReportService builds a report service grouped in the factory zone.
func (f *ServiceFactory) NewReportService(deps ReportServiceDeps) *application.ReportService {
	return application.NewReportServiceWithLogger(deps.Store, f.Location, f.Clock.NowFunc(), deps.Logger)
}
