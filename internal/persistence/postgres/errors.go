package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/example/room-booking/internal/persistence"
)

// mapError translates driver errors into persistence sentinels. Unknown errors pass
// through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return persistence.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %v", persistence.ErrUnavailable, err)
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Name() {
	case "unique_violation":
		return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pqErr.Message)
	case "foreign_key_violation":
		return fmt.Errorf("%w: %s", persistence.ErrForeignKeyViolation, pqErr.Message)
	case "check_violation", "not_null_violation":
		return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pqErr.Message)
	case "serialization_failure", "deadlock_detected", "lock_not_available", "too_many_connections", "admin_shutdown":
		return fmt.Errorf("%w: %s", persistence.ErrUnavailable, pqErr.Message)
	}
	if pqErr.Code.Class() == "08" {
		return fmt.Errorf("%w: %s", persistence.ErrUnavailable, pqErr.Message)
	}
	return err
}
