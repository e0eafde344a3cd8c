// Package migration applies versioned SQL schema files to a database.
//
// Migration files are read from an fs.FS (normally an embed.FS owned by the
// backend) and must be named {version}_{description}.sql, for example
// "001_init.sql". Applied versions are tracked in a schema_migrations table and
// each file runs in its own transaction together with its version record.
//
// Example usage:
//
//	manager := migration.NewManager(
//		migration.NewScanner(migrationFS, "migrations"),
//		migration.NewSQLiteExecutor(db),
//		logger,
//	)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
