package http

import (
	"context"
	"log/slog"

	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/policy"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ContextWithActor returns a derived context carrying the authenticated actor.
func ContextWithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext returns the request actor, or the anonymous actor when none was set.
func ActorFromContext(ctx context.Context) policy.Actor {
	if actor, ok := ctx.Value(actorContextKey).(policy.Actor); ok {
		return actor
	}
	return policy.Anonymous()
}

// ContextWithLogger attaches the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request logger or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
