// Package migration applies versioned SQL schema files to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embed.FS compiled into
// the binary) and must be named {version}_{description}.sql, for example
// "001_initial_schema.sql". Versions are applied in ascending numeric order,
// each inside its own transaction together with its schema_migrations row,
// so a failed file leaves no partial schema behind.
//
// Example usage:
//
//	scanner := migration.NewScanner(files, "migrations")
//	manager := migration.NewManager(scanner, migration.NewSQLiteExecutor(db), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
