package calsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/ics"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/storage"
)

const feedV1 = `BEGIN:VCALENDAR
X-WR-CALNAME:Team
BEGIN:VEVENT
UID:weekly@example.com
SUMMARY:Planning
DTSTART:20240101T150000Z
DTEND:20240101T160000Z
RRULE:FREQ=WEEKLY;COUNT=3
END:VEVENT
BEGIN:VEVENT
UID:launch@example.com
SUMMARY:Launch review
DTSTART:20240102T090000Z
DTEND:20240102T100000Z
ORGANIZER;CN=Alice:mailto:alice@example.com
END:VEVENT
END:VCALENDAR`

// feedV2 drops the last weekly instance and renames the launch review.
const feedV2 = `BEGIN:VCALENDAR
X-WR-CALNAME:Team
BEGIN:VEVENT
UID:weekly@example.com
SUMMARY:Planning
DTSTART:20240101T150000Z
DTEND:20240101T160000Z
RRULE:FREQ=WEEKLY;COUNT=2
END:VEVENT
BEGIN:VEVENT
UID:launch@example.com
SUMMARY:Launch review (moved room)
DTSTART:20240102T090000Z
DTEND:20240102T100000Z
ORGANIZER;CN=Alice:mailto:alice@example.com
END:VEVENT
END:VCALENDAR`

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		DefaultInterval: 30 * time.Minute,
		PastWindow:      30 * 24 * time.Hour,
		HorizonMonths:   6,
		MaxOccurrences:  365,
		MaxConcurrent:   2,
		MaxFeedBytes:    1 << 20,
		LockTTL:         time.Minute,
	}
}

// feedServer serves a swappable feed with ETag support.
type feedServer struct {
	mu     sync.Mutex
	body   string
	etag   string
	status int
	hits   int
}

func (f *feedServer) set(body, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.etag, f.status = body, etag, 0
}

func (f *feedServer) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits++
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if f.etag != "" && r.Header.Get("If-None-Match") == f.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if f.etag != "" {
		w.Header().Set("ETag", f.etag)
	}
	w.Header().Set("Content-Type", "text/calendar")
	w.Write([]byte(f.body))
}

type fakeMirror struct {
	mu       sync.Mutex
	upserted map[string][]*model.SyncedEvent
	kept     map[string][]string
	err      error
}

func (m *fakeMirror) UpsertEvents(_ context.Context, syncID string, events []*model.SyncedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.upserted == nil {
		m.upserted = make(map[string][]*model.SyncedEvent)
	}
	m.upserted[syncID] = events
	return nil
}

func (m *fakeMirror) DeleteMissing(_ context.Context, syncID string, keep []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.kept == nil {
		m.kept = make(map[string][]string)
	}
	m.kept[syncID] = keep
	return nil
}

func setupService(t *testing.T, opts ...Option) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := []Option{
		WithConfig(testSyncConfig()),
		WithClock(func() time.Time { return testNow }),
		WithFetcher(&ics.Fetcher{Client: http.DefaultClient, MaxBodyBytes: ics.DefaultMaxBodyBytes}),
	}
	return NewService(db, append(base, opts...)...), db
}

func hasActivity(t *testing.T, db *storage.DB, action string) bool {
	t.Helper()
	all, err := storage.NewActivityRepo(db).List(0)
	require.NoError(t, err)
	for _, a := range all {
		if a.Action == action {
			return true
		}
	}
	return false
}

func TestAdd(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	cal, err := svc.Add(ctx, "  Team  ", "http://127.0.0.1:9/team.ics", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Team", cal.Name)
	assert.Equal(t, 30*time.Minute, cal.Interval)
	assert.True(t, cal.Enabled)
	assert.Equal(t, model.SyncStatusNever, cal.LastStatus)
	assert.True(t, hasActivity(t, db, model.ActionCalendarAdded))

	stored, err := storage.NewCalendarSyncRepo(db).Get(cal.ID)
	require.NoError(t, err)
	assert.Equal(t, cal.URL, stored.URL)

	_, err = svc.Add(ctx, "Bad", "ftp://example.com/x.ics", "", 0)
	assert.True(t, errors.IsUserError(err))

	_, err = svc.Add(ctx, "", "http://127.0.0.1:9/team.ics", "", 0)
	assert.True(t, errors.IsUserError(err))

	_, err = svc.Add(ctx, "Linked", "http://127.0.0.1:9/team.ics", "missing", 0)
	assert.True(t, errors.Is(err, errors.ErrProjectNotFound))

	require.NoError(t, storage.NewProjectRepo(db).Create(model.NewProject("website", "Website", "")))
	linked, err := svc.Add(ctx, "Linked", "http://127.0.0.1:9/team.ics", "website", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "website", linked.ProjectSID)
	assert.Equal(t, time.Hour, linked.Interval)
}

func TestSyncAppliesDiff(t *testing.T) {
	feed := &feedServer{}
	feed.set(feedV1, `"v1"`)
	srv := httptest.NewServer(feed)
	defer srv.Close()

	svc, db := setupService(t)
	ctx := context.Background()
	cal, err := svc.Add(ctx, "Team", srv.URL+"/team.ics", "", 0)
	require.NoError(t, err)

	// First run stores every occurrence.
	res, err := svc.Sync(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Added)
	assert.Equal(t, 4, res.Total)
	assert.False(t, res.Unchanged)

	events := storage.NewSyncedEventRepo(db)
	stored, err := events.ListBySync(cal.ID)
	require.NoError(t, err)
	require.Len(t, stored, 4)

	launch, err := events.Get(model.GenerateEventKey(cal.ID, "launch@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "Launch review", launch.Title)
	assert.Equal(t, "Alice <alice@example.com>", launch.Organizer)
	assert.NotEmpty(t, launch.Hash)

	weekly, err := events.Get(model.GenerateEventKey(cal.ID, "weekly@example.com_20240108T150000Z"))
	require.NoError(t, err)
	assert.True(t, weekly.Recurring)

	updated, err := storage.NewCalendarSyncRepo(db).Get(cal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusOK, updated.LastStatus)
	assert.Equal(t, `"v1"`, updated.ETag)
	assert.Equal(t, 4, updated.EventCount)
	assert.True(t, testNow.Equal(updated.LastSyncAt))

	// Same ETag: the server answers 304.
	res, err = svc.Sync(ctx, cal.ID)
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, 4, res.Total)

	// New content: one rename, one removed instance.
	feed.set(feedV2, `"v2"`)
	res, err = svc.Sync(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 2, res.Kept)
	assert.True(t, res.Changed())

	stored, err = events.ListBySync(cal.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	_, err = events.Get(model.GenerateEventKey(cal.ID, "weekly@example.com_20240115T150000Z"))
	assert.True(t, errors.Is(err, errors.ErrEventNotFound))

	assert.True(t, hasActivity(t, db, model.ActionCalendarSynced))
}

func TestSyncFailures(t *testing.T) {
	feed := &feedServer{}
	srv := httptest.NewServer(feed)
	defer srv.Close()

	svc, db := setupService(t)
	ctx := context.Background()
	cal, err := svc.Add(ctx, "Team", srv.URL+"/team.ics", "", 0)
	require.NoError(t, err)

	t.Run("server_error_is_recoverable", func(t *testing.T) {
		feed.fail(http.StatusServiceUnavailable)
		_, err := svc.Sync(ctx, cal.ID)
		require.Error(t, err)
		assert.True(t, errors.IsRecoverableError(err))

		stored, err := storage.NewCalendarSyncRepo(db).Get(cal.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusError, stored.LastStatus)
		assert.NotEmpty(t, stored.LastError)
	})

	t.Run("not_found_is_system_error", func(t *testing.T) {
		feed.fail(http.StatusNotFound)
		_, err := svc.Sync(ctx, cal.ID)
		require.Error(t, err)
		assert.True(t, errors.IsSystemError(err))
		assert.False(t, errors.IsRecoverableError(err))
	})

	t.Run("html_instead_of_calendar", func(t *testing.T) {
		feed.set("<html>login required</html>", "")
		_, err := svc.Sync(ctx, cal.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidFeed))
	})

	assert.True(t, hasActivity(t, db, model.ActionSyncFailed))
}

func TestSyncFailureHidesFeedToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	feedURL := srv.URL + "/calendar/ical/private-SECRETTOKEN/basic.ics"
	srv.Close()

	svc, db := setupService(t)
	ctx := context.Background()
	cal, err := svc.Add(ctx, "Private", feedURL, "", 0)
	require.NoError(t, err)

	_, err = svc.Sync(ctx, cal.ID)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRETTOKEN")

	stored, err := storage.NewCalendarSyncRepo(db).Get(cal.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.LastError)
	assert.NotContains(t, stored.LastError, "SECRETTOKEN")

	all, err := storage.NewActivityRepo(db).List(0)
	require.NoError(t, err)
	for _, a := range all {
		assert.NotContains(t, a.Message, "SECRETTOKEN", a.Action)
	}
}

func TestSyncEndsBeforeLockExpires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testSyncConfig()
	cfg.LockTTL = 200 * time.Millisecond
	locker := NewLocalLocker()
	svc, _ := setupService(t, WithConfig(cfg), WithLocker(locker))
	ctx := context.Background()
	cal, err := svc.Add(ctx, "Slow", srv.URL+"/slow.ics", "", 0)
	require.NoError(t, err)

	began := time.Now()
	_, err = svc.Sync(ctx, cal.ID)
	require.Error(t, err)
	assert.Less(t, time.Since(began), 2*time.Second)

	// The lock was released when the bounded run gave up.
	release, err := locker.Acquire(ctx, cal.ID, time.Minute)
	require.NoError(t, err)
	release()
}

func TestSyncDisabledAndLocked(t *testing.T) {
	locker := NewLocalLocker()
	svc, db := setupService(t, WithLocker(locker))
	ctx := context.Background()

	cal, err := svc.Add(ctx, "Team", "http://127.0.0.1:9/team.ics", "", 0)
	require.NoError(t, err)

	release, err := locker.Acquire(ctx, cal.ID, time.Minute)
	require.NoError(t, err)
	_, err = svc.Sync(ctx, cal.ID)
	assert.True(t, errors.Is(err, errors.ErrSyncInProgress))
	release()

	_, err = storage.NewCalendarSyncRepo(db).SetEnabled(cal.ID, false)
	require.NoError(t, err)
	_, err = svc.Sync(ctx, cal.ID)
	assert.True(t, errors.Is(err, errors.ErrCalendarDisabled))

	_, err = svc.Sync(ctx, "does-not-exist")
	assert.True(t, errors.Is(err, errors.ErrCalendarNotFound))
}

func TestImport(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	cal, err := svc.Add(ctx, "Offline", "http://127.0.0.1:9/offline.ics", "", 0)
	require.NoError(t, err)

	res, err := svc.Import(ctx, cal.ID, strings.NewReader(feedV1))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Added)

	stored, err := storage.NewSyncedEventRepo(db).ListBySync(cal.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	_, err = svc.Import(ctx, cal.ID, strings.NewReader("garbage"))
	assert.True(t, errors.Is(err, errors.ErrInvalidFeed))
}

func TestSyncDueIsAllSettled(t *testing.T) {
	good := &feedServer{}
	good.set(feedV1, "")
	goodSrv := httptest.NewServer(good)
	defer goodSrv.Close()

	bad := &feedServer{}
	bad.fail(http.StatusInternalServerError)
	badSrv := httptest.NewServer(bad)
	defer badSrv.Close()

	svc, _ := setupService(t)
	ctx := context.Background()

	okCal, err := svc.Add(ctx, "Good", goodSrv.URL, "", 0)
	require.NoError(t, err)
	badCal, err := svc.Add(ctx, "Bad", badSrv.URL, "", 0)
	require.NoError(t, err)

	results, err := svc.SyncDue(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := make(map[string]*Result)
	for _, r := range results {
		byID[r.SyncID] = r
	}
	require.Contains(t, byID, okCal.ID)
	require.Contains(t, byID, badCal.ID)
	assert.NoError(t, byID[okCal.ID].Err)
	assert.Equal(t, 4, byID[okCal.ID].Added)
	assert.Error(t, byID[badCal.ID].Err)

	// Both ran at testNow, so neither is due again yet.
	results, err = svc.SyncDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)

	// SyncAll ignores intervals.
	results, err = svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSyncPushesMirror(t *testing.T) {
	feed := &feedServer{}
	feed.set(feedV1, "")
	srv := httptest.NewServer(feed)
	defer srv.Close()

	mirror := &fakeMirror{}
	svc, _ := setupService(t, WithMirror(mirror))
	ctx := context.Background()

	cal, err := svc.Add(ctx, "Team", srv.URL, "", 0)
	require.NoError(t, err)

	res, err := svc.Sync(ctx, cal.ID)
	require.NoError(t, err)
	assert.Empty(t, res.MirrorErr)
	assert.Len(t, mirror.upserted[cal.ID], 4)
	assert.Contains(t, mirror.kept[cal.ID], "launch@example.com")

	mirror.err = errors.New("connection refused")
	feed.set(feedV2, "")
	res, err = svc.Sync(ctx, cal.ID)
	require.NoError(t, err)
	assert.Contains(t, res.MirrorErr, "connection refused")
	assert.Equal(t, 1, res.Updated)
}

func TestRemove(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	cal, err := svc.Add(ctx, "Offline", "http://127.0.0.1:9/offline.ics", "", 0)
	require.NoError(t, err)
	_, err = svc.Import(ctx, cal.ID, strings.NewReader(feedV1))
	require.NoError(t, err)

	n, err := svc.Remove(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = storage.NewCalendarSyncRepo(db).Get(cal.ID)
	assert.True(t, errors.Is(err, errors.ErrCalendarNotFound))
	stored, err := storage.NewSyncedEventRepo(db).ListBySync(cal.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.True(t, hasActivity(t, db, model.ActionCalendarRemoved))
}
