package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries the holder's token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// ErrLockUnavailable wraps Redis failures while acquiring.
var ErrLockUnavailable = errors.New("lock: redis unavailable")

// Redis holds keys across processes with SET NX PX. A holder that crashes loses the
// key after the TTL.
type Redis struct {
	client       redis.Cmdable
	ttl          time.Duration
	retry        time.Duration
	releaseAfter time.Duration
	token        func() string
	logger       *slog.Logger
}

// RedisOption configures a Redis lock.
type RedisOption func(*Redis)

// WithTTL sets how long a key survives without release.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithRetryInterval sets the delay between attempts on a held key.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(r *Redis) { r.retry = d }
}

// WithTokenSource replaces the random holder tokens.
func WithTokenSource(token func() string) RedisOption {
	return func(r *Redis) { r.token = token }
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = logger }
}

// NewRedis returns a lock on client with a 30s TTL and 50ms polling.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		client:       client,
		ttl:          30 * time.Second,
		retry:        50 * time.Millisecond,
		releaseAfter: 5 * time.Second,
		token:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "redis_lock")
	return r
}

// Acquire polls until key is set for this holder or ctx ends.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := r.token()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: set %s: %v", ErrLockUnavailable, key, err)
		}
		if ok {
			return r.releaser(key, token), nil
		}
		timer.Reset(r.retry)
	}
}

// releaser deletes the key on a fresh context so a cancelled request still unlocks.
func (r *Redis) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.releaseAfter)
			defer cancel()

			deleted, err := r.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
			switch {
			case err != nil:
				r.logger.WarnContext(ctx, "failed to release lock", "key", key, "error", err)
			case deleted == 0:
				r.logger.WarnContext(ctx, "lock expired before release", "key", key, "ttl", r.ttl)
			}
		})
	}
}
