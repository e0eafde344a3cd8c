package lock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedLock(t *testing.T, opts ...RedisOption) (*Redis, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	opts = append([]RedisOption{
		WithTokenSource(func() string { return "token-1" }),
		WithRetryInterval(time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewRedis(client, opts...), mock
}

func TestRedis_AcquireAndRelease(t *testing.T) {
	l, mock := newMockedLock(t, WithTTL(10*time.Second))
	key := "booking:approval:room-a:2024-05-10"

	mock.ExpectSetNX(key, "token-1", 10*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{key}, "token-1").SetVal(int64(1))

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	release()
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_RetriesWhileHeld(t *testing.T) {
	l, mock := newMockedLock(t)
	key := "booking:approval:room-a:2024-05-10"

	mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(false)
	mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(false)
	mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(true)

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.NotNil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_GivesUpWhenContextEnds(t *testing.T) {
	l, mock := newMockedLock(t, WithRetryInterval(time.Hour))
	key := "booking:approval:room-b:2024-05-10"

	mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release, err := l.Acquire(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_ReportsRedisFailure(t *testing.T) {
	l, mock := newMockedLock(t)
	key := "booking:approval:room-c:2024-05-10"

	mock.ExpectSetNX(key, "token-1", 30*time.Second).SetErr(errors.New("connection refused"))

	_, err := l.Acquire(context.Background(), key)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRedis_ReleaseAfterExpiryIsHarmless(t *testing.T) {
	l, mock := newMockedLock(t)
	key := "booking:approval:room-d:2024-05-10"

	mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{key}, "token-1").SetVal(int64(0))

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.NotPanics(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}
