package migration

import (
	"context"
	"time"
)

// Migration is one schema file.
type Migration struct {
	Version     string // numeric prefix of the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of SQL, hex encoded
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the schema state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Source lists the available migration files.
type Source interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations and tracks which versions are in place.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	// Apply runs the migration and records it in a single transaction.
	Apply(ctx context.Context, migration Migration) (time.Duration, error)
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
