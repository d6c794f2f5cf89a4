package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/shift-ledger/internal/persistence"
	"github.com/example/shift-ledger/internal/persistence/sqlite"
	"github.com/example/shift-ledger/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a migrated SQLite
// database for integration-style tests.
type SQLiteHarness struct {
	Employers persistence.EmployerRepository
	Shifts    persistence.ShiftRepository
	Entries   persistence.EntryRepository
	// Storage satisfies every store interface of the application services.
	Storage *sqlite.Storage

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary database file.
// Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "ledger.db")
	return newHarness(tb, migration.DefaultSQLiteConfig(path))
}

// NewInMemorySQLiteHarness constructs a SQLiteHarness over a private
// in-memory database.
func NewInMemorySQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()
	return newHarness(tb, migration.InMemoryTestSQLiteConfig())
}

func newHarness(tb testing.TB, config migration.SQLiteConfig) *SQLiteHarness {
	tb.Helper()
	ctx := context.Background()

	storage, err := sqlite.Open(ctx, config, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if _, err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Employers: storage,
		Shifts:    storage,
		Entries:   storage,
		Storage:   storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedEmployer stores employer or fails the test.
func (h *SQLiteHarness) SeedEmployer(tb testing.TB, employer EmployerFixture) persistence.Employer {
	tb.Helper()
	stored := employer.Persistence()
	if err := h.Employers.CreateEmployer(context.Background(), stored); err != nil {
		tb.Fatalf("failed to seed employer %s: %v", employer.ID, err)
	}
	return stored
}

// SeedShift stores shift or fails the test.
func (h *SQLiteHarness) SeedShift(tb testing.TB, shift ShiftFixture) persistence.Shift {
	tb.Helper()
	stored := shift.Persistence()
	if err := h.Shifts.CreateShift(context.Background(), stored); err != nil {
		tb.Fatalf("failed to seed shift %s: %v", shift.ID, err)
	}
	return stored
}

// SeedEntry completes the entry's shift or fails the test.
func (h *SQLiteHarness) SeedEntry(tb testing.TB, entry EntryFixture) persistence.PayrollEntry {
	tb.Helper()
	stored := entry.Persistence()
	if err := h.Entries.CompleteShift(context.Background(), stored); err != nil {
		tb.Fatalf("failed to seed entry %s: %v", entry.ID, err)
	}
	return stored
}
