// Package sqlite implements the persistence repositories on SQLite through the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shift-ledger/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// timeLayout matches the calendar's ISO-8601 form so that text comparison
// orders timestamps and shift keys can be rebuilt from stored values.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Storage bundles the repositories over one connection pool.
type Storage struct {
	*EmployerRepository
	*ShiftRepository
	*EntryRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		EmployerRepository: NewEmployerRepository(pool),
		ShiftRepository:    NewShiftRepository(pool),
		EntryRepository:    NewEntryRepository(pool),
		pool:               pool,
		logger:             logger,
	}, nil
}

// OpenPath opens a file database with the default settings.
func OpenPath(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	return Open(ctx, migration.DefaultSQLiteConfig(path), logger)
}

// Close releases the pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks the connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.DB().PingContext(ctx)
}

// Migrate applies the embedded schema migrations and returns how many ran.
func (s *Storage) Migrate(ctx context.Context) (int, error) {
	return s.migrationManager().Run(ctx)
}

// MigrationStatus reports applied and pending schema versions.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return s.migrationManager().Status(ctx)
}

func (s *Storage) migrationManager() *migration.Manager {
	scanner := migration.NewScanner(migrationFiles, "migrations")
	return migration.NewManager(scanner, migration.NewSQLiteExecutor(s.pool.DB()), s.logger)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	n := int(value.Int64)
	return &n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
