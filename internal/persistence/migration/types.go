package migration

import (
	"context"
	"time"
)

// Migration is one versioned schema file.
type Migration struct {
	Version     string // numeric prefix of the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // hex SHA-256 of SQL
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status describes the schema state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Source lists the migrations that should exist, ordered by version.
type Source interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations and tracks which versions have run.
type Executor interface {
	// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
	InitializeVersionTable(ctx context.Context) error
	// Apply runs migration and records its version in a single transaction.
	Apply(ctx context.Context, migration Migration) error
	// AppliedVersions returns the recorded migrations ordered by version.
	AppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
