package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLExecutor implements Executor over database/sql. Statements are written with
// '?' placeholders and rebound for the target driver.
type SQLExecutor struct {
	db       *sql.DB
	bindType int
	now      func() time.Time
}

// NewSQLiteExecutor creates an executor for SQLite databases.
func NewSQLiteExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db, bindType: sqlx.QUESTION, now: time.Now}
}

// NewPostgresExecutor creates an executor for PostgreSQL databases.
func NewPostgresExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db, bindType: sqlx.DOLLAR, now: time.Now}
}

func (e *SQLExecutor) rebind(query string) string {
	return sqlx.Rebind(e.bindType, query)
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)`

	if _, err := e.db.ExecContext(ctx, createTable); err != nil {
		return newDatabaseError("", "create schema_migrations table", err)
	}
	return nil
}

// Apply runs every statement of migration and records it within one transaction.
func (e *SQLExecutor) Apply(ctx context.Context, migration Migration) (err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return newDatabaseError(migration.Version, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return newDatabaseError(migration.Version, fmt.Sprintf("execute statement %d", i+1), err)
		}
	}

	record := e.rebind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	elapsed := e.now().Sub(started)
	if _, err = tx.ExecContext(ctx, record,
		migration.Version,
		e.now().UTC().Format(time.RFC3339),
		migration.Checksum,
		elapsed.Milliseconds(),
	); err != nil {
		return newDatabaseError(migration.Version, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return newDatabaseError(migration.Version, "commit transaction", err)
	}
	return nil
}

// AppliedVersions returns all recorded migrations ordered by version.
func (e *SQLExecutor) AppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const query = `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM schema_migrations
		ORDER BY version ASC`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, newDatabaseError("", "get applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			record    AppliedMigration
			appliedAt string
			elapsedMs int64
		)
		if err := rows.Scan(&record.Version, &appliedAt, &elapsedMs, &record.Checksum); err != nil {
			return nil, newDatabaseError("", "scan applied migration", err)
		}
		if parsed, err := time.Parse(time.RFC3339, appliedAt); err == nil {
			record.AppliedAt = parsed
		}
		record.ExecutionTime = time.Duration(elapsedMs) * time.Millisecond
		applied = append(applied, record)
	}
	if err := rows.Err(); err != nil {
		return nil, newDatabaseError("", "iterate applied migrations", err)
	}
	return applied, nil
}

// splitStatements splits on semicolons after dropping comment lines.
// Statements containing literal semicolons are not supported.
func splitStatements(sql string) []string {
	var statements []string
	for _, stmt := range strings.Split(stripComments(sql), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
