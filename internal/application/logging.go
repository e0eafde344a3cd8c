package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/room-booking/internal/logging"
)

var defaultLogger = logging.OrDefault

// serviceLogger prefers the request logger on ctx and tags it with the service and
// operation.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	tags := make([]any, 0, 4+len(attrs))
	tags = append(tags, "service", serviceName)
	if operation != "" {
		tags = append(tags, "operation", operation)
	}
	return logging.FromContextOr(ctx, base).With(append(tags, attrs...)...)
}

var errorKinds = []struct {
	sentinel error
	kind     string
}{
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidState, "invalid_state"},
	{ErrConflict, "conflict"},
	{ErrStoreUnavailable, "store_unavailable"},
}

// ErrorKind labels err for the error_kind log attribute.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return "unexpected"
}

// logLevelFor reports caller errors at warn and store or unexpected failures at error.
func logLevelFor(err error) slog.Level {
	switch ErrorKind(err) {
	case "store_unavailable", "unexpected":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
