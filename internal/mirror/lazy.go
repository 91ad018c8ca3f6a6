package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/manav03panchal/projecthub/internal/model"
)

// DefaultRetryInterval is how long Lazy waits after a failed connect before
// trying again.
const DefaultRetryInterval = 30 * time.Second

// ErrUnavailable wraps the last connect error while Lazy is waiting to retry.
var ErrUnavailable = errors.New("postgres mirror unavailable")

// Lazy connects to Postgres on first use and reconnects after a failed
// attempt once RetryInterval has passed. A down database only fails the
// mirror step, so calendar syncs keep running against the local store.
type Lazy struct {
	RetryInterval time.Duration

	url  string
	open func(ctx context.Context, url string) (*sql.DB, error)
	now  func() time.Time

	mu      sync.Mutex
	m       *PostgresMirror
	lastErr error
	lastTry time.Time
}

// NewLazy returns a mirror for databaseURL that has not connected yet.
func NewLazy(databaseURL string) *Lazy {
	return &Lazy{
		RetryInterval: DefaultRetryInterval,
		url:           databaseURL,
		open:          Open,
		now:           time.Now,
	}
}

// Connected reports whether a connection has been established.
func (l *Lazy) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m != nil
}

func (l *Lazy) get(ctx context.Context) (*PostgresMirror, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.m != nil {
		return l.m, nil
	}
	if l.lastErr != nil && l.now().Sub(l.lastTry) < l.RetryInterval {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, l.lastErr)
	}

	l.lastTry = l.now()
	db, err := l.open(ctx, l.url)
	if err != nil {
		l.lastErr = err
		return nil, err
	}
	l.lastErr = nil
	l.m = NewPostgresMirror(db)
	return l.m, nil
}

// Ping connects if needed and checks the connection.
func (l *Lazy) Ping(ctx context.Context) error {
	m, err := l.get(ctx)
	if err != nil {
		return err
	}
	return m.Ping(ctx)
}

// UpsertEvents connects if needed and upserts events.
func (l *Lazy) UpsertEvents(ctx context.Context, syncID string, events []*model.SyncedEvent) error {
	m, err := l.get(ctx)
	if err != nil {
		return err
	}
	return m.UpsertEvents(ctx, syncID, events)
}

// DeleteMissing connects if needed and removes rows not in keep.
func (l *Lazy) DeleteMissing(ctx context.Context, syncID string, keep []string) error {
	m, err := l.get(ctx)
	if err != nil {
		return err
	}
	return m.DeleteMissing(ctx, syncID, keep)
}

// Close closes the pool if one was opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		return nil
	}
	err := l.m.Close()
	l.m = nil
	return err
}
