package mirror

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyReconnects(t *testing.T) {
	ctx := context.Background()
	down := errors.New("connection refused")
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	calls := 0
	l := NewLazy("postgres://u:p@127.0.0.1:1/db")
	l.now = func() time.Time { return now }
	l.open = func(ctx context.Context, url string) (*sql.DB, error) {
		calls++
		if calls == 1 {
			return nil, down
		}
		// sql.Open does not dial, so this pool is never used for queries.
		return sql.Open("pgx", url)
	}
	t.Cleanup(func() { l.Close() })

	err := l.UpsertEvents(ctx, "sync-1", nil)
	assert.ErrorIs(t, err, down)
	assert.False(t, l.Connected())

	err = l.DeleteMissing(ctx, "sync-1", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls, "no reconnect inside the retry interval")

	now = now.Add(DefaultRetryInterval)
	require.NoError(t, l.UpsertEvents(ctx, "sync-1", nil))
	assert.True(t, l.Connected())
	assert.Equal(t, 2, calls)

	require.NoError(t, l.UpsertEvents(ctx, "sync-1", nil))
	assert.Equal(t, 2, calls, "connection is reused")

	require.NoError(t, l.Close())
	assert.False(t, l.Connected())
}

func TestLazyCloseUnconnected(t *testing.T) {
	l := NewLazy("postgres://u:p@127.0.0.1:1/db")
	assert.NoError(t, l.Close())
}

func TestLazyAgainstDatabase(t *testing.T) {
	url := getTestDatabaseURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l := NewLazy(url)
	defer l.Close()
	require.NoError(t, l.Ping(ctx))
	assert.True(t, l.Connected())
}
