package http

import (
	"context"
	"log/slog"

	"github.com/example/room-booking/internal/logging"
)

var defaultLogger = logging.OrDefault

func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, fallback)

	logger = logger.With("handler", handlerName)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if actor := ActorFromContext(ctx); actor.ID != "" {
		logger = logger.With("actor_id", actor.ID)
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
