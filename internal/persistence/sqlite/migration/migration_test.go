package migration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_create_widgets.sql": {Data: []byte(`-- Description: create widgets
CREATE TABLE widgets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT 'unnamed'
);`)},
		"migrations/002_add_index.sql": {Data: []byte(`CREATE INDEX idx_widgets_name ON widgets(name);
-- trailing comment
`)},
		"migrations/README.md": {Data: []byte("ignored")},
	}
}

func openTestDB(t *testing.T) *Manager {
	t.Helper()
	db, err := Open(context.Background(), InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewManager(NewScanner(testFS(), "migrations"), NewSQLiteExecutor(db), nil)
}

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	migrations, err := NewScanner(testFS(), "migrations").Scan()
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != "001" || migrations[0].Description != "create widgets" {
		t.Fatalf("unexpected first migration %+v", migrations[0])
	}
	if migrations[1].Description != "add index" {
		t.Fatalf("expected description from filename, got %q", migrations[1].Description)
	}
	if len(migrations[0].Checksum) != 64 {
		t.Fatalf("expected sha256 checksum, got %q", migrations[0].Checksum)
	}
}

func TestScanner_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fsys fstest.MapFS
		want error
	}{
		{
			name: "bad file name",
			fsys: fstest.MapFS{"m/initial.sql": {Data: []byte("SELECT 1;")}},
			want: ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"m/001_a.sql":  {Data: []byte("SELECT 1;")},
				"m/0001_b.sql": {Data: []byte("SELECT 2;")},
			},
			want: ErrDuplicateVersion,
		},
		{
			name: "unbalanced parentheses",
			fsys: fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE t (id TEXT;")}},
			want: ErrInvalidMigrationFile,
		},
		{
			name: "comments only",
			fsys: fstest.MapFS{"m/001_a.sql": {Data: []byte("-- nothing here\n")}},
			want: ErrInvalidMigrationFile,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewScanner(tc.fsys, "m").Scan()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := SplitStatements("-- header\nCREATE TABLE a (id INT);\n\n  ;CREATE TABLE b (id INT)")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %q", got)
	}
	if !strings.HasPrefix(got[1], "CREATE TABLE b") {
		t.Fatalf("unexpected second statement %q", got[1])
	}
}

func TestManager_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := openTestDB(t)

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}

	again, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no migrations on second run, got %d", again)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Pending) != 0 || len(status.Applied) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestManager_RunRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"m/001_ok.sql":     {Data: []byte("CREATE TABLE a (id TEXT PRIMARY KEY);")},
		"m/002_broken.sql": {Data: []byte("CREATE TABLE b (id TEXT);\nINSERT INTO missing VALUES (1);")},
	}
	manager := NewManager(NewScanner(fsys, "m"), NewSQLiteExecutor(db), nil)

	applied, err := manager.Run(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected first migration to stay applied, got %d", applied)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'b'`).Scan(&count); err != nil {
		t.Fatalf("failed to query schema: %v", err)
	}
	if count != 0 {
		t.Fatal("expected table from failed migration to be rolled back")
	}
}

func TestManager_DetectsEditedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	original := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
	if _, err := NewManager(NewScanner(original, "m"), NewSQLiteExecutor(db), nil).Run(ctx); err != nil {
		t.Fatalf("initial Run returned error: %v", err)
	}

	edited := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT, name TEXT);")}}
	if _, err := NewManager(NewScanner(edited, "m"), NewSQLiteExecutor(db), nil).Run(ctx); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}

	if _, err := NewManager(NewScanner(edited, "m"), NewSQLiteExecutor(db), nil).SkipChecksumVerification().Run(ctx); err != nil {
		t.Fatalf("expected edited file to be accepted without verification, got %v", err)
	}
}

func TestSQLiteConfig_DSN(t *testing.T) {
	t.Parallel()

	dsn := InMemoryTestSQLiteConfig().DSN()
	if !strings.HasPrefix(dsn, "file::memory:?") {
		t.Fatalf("unexpected DSN %q", dsn)
	}
	if !strings.Contains(dsn, "foreign_keys%281%29") {
		t.Fatalf("expected foreign_keys pragma in DSN %q", dsn)
	}

	bad := DefaultSQLiteConfig("ledger.db")
	bad.JournalMode = "FAST"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid journal mode to be rejected")
	}
}
