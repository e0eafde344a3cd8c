package migration

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every failure returned by a Runner wraps one of them.
var (
	ErrMigrationFailed      = errors.New("migration failed")
	ErrInvalidMigrationFile = errors.New("malformed migration file name")
	ErrInvalidVersion       = errors.New("migration version is not a number")
	ErrDuplicateVersion     = errors.New("migration version used twice")
	// ErrVersionConflict covers gaps in the numbering and applied versions whose file
	// is gone.
	ErrVersionConflict = errors.New("migration history does not match files")
)

// MigrationError ties a failure to the file that caused it.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	subject := e.FilePath
	if e.Version != "" {
		subject = "v" + e.Version + " " + e.FilePath
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, subject, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

// DatabaseError is a statement failure while recording or applying a migration.
type DatabaseError struct {
	Version   string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s (v%s): %v", e.Operation, e.Version, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func newDatabaseError(version, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Operation: operation, Err: err}
}
