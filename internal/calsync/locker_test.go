package calsync

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/projecthub/internal/errors"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	release, err := l.Acquire(ctx, "cal-1", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "cal-1", time.Minute)
	assert.True(t, errors.Is(err, errors.ErrSyncInProgress))

	other, err := l.Acquire(ctx, "cal-2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "cal-1", time.Minute)
	require.NoError(t, err)
	again()
}

func setupRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := OpenRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerExclusive(t *testing.T) {
	ctx := context.Background()
	l, mr := setupRedisLocker(t)

	release, err := l.Acquire(ctx, "cal-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("projecthub:sync-lock:cal-1"))

	_, err = l.Acquire(ctx, "cal-1", time.Minute)
	assert.True(t, errors.Is(err, errors.ErrSyncInProgress))

	release()
	assert.False(t, mr.Exists("projecthub:sync-lock:cal-1"))

	again, err := l.Acquire(ctx, "cal-1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestRedisLockerExpiry(t *testing.T) {
	ctx := context.Background()
	l, mr := setupRedisLocker(t)

	stale, err := l.Acquire(ctx, "cal-1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "cal-1", time.Minute)
	require.NoError(t, err)

	// The expired holder must not release the new owner's lock.
	stale()
	assert.True(t, mr.Exists("projecthub:sync-lock:cal-1"))

	fresh()
	assert.False(t, mr.Exists("projecthub:sync-lock:cal-1"))
}

func TestOpenRedisInvalidURL(t *testing.T) {
	_, err := OpenRedis(context.Background(), "not-a-url://")
	assert.Error(t, err)
}
