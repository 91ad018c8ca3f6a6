package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// =============================================================================
// DB Tests
// =============================================================================

func TestOpenClose(t *testing.T) {
	t.Run("in_memory", func(t *testing.T) {
		db, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		assert.Equal(t, "", db.Path())
		assert.NotNil(t, db.Badger())
		assert.NoError(t, db.Close())
	})

	t.Run("memory_path", func(t *testing.T) {
		db, err := Open(Options{Path: MemoryPath})
		require.NoError(t, err)
		assert.Equal(t, "", db.Path())
		db.Close()
	})

	t.Run("on_disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		db, err := Open(Options{Path: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, db.Path())
		require.NoError(t, db.Set(model.NewProject("p", "P", "")))
		require.NoError(t, db.Close())

		reopened, err := Open(Options{Path: dir})
		require.NoError(t, err)
		defer reopened.Close()
		ok, err := reopened.Exists("project:p")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	assert.Contains(t, path, "projecthub")
	assert.Equal(t, "db", filepath.Base(path))
}

func TestCheckIntegrity(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Set(model.NewProject("p", "P", "")))
	assert.NoError(t, db.CheckIntegrity())
}

// =============================================================================
// CRUD Tests
// =============================================================================

func TestGetSetDelete(t *testing.T) {
	db := setupTestDB(t)

	p := model.NewProject("alpha", "Alpha", "#112233")
	require.NoError(t, db.Set(p))

	got := &model.Project{}
	require.NoError(t, db.Get("project:alpha", got))
	assert.Equal(t, "Alpha", got.DisplayName)
	assert.Equal(t, "project:alpha", got.Key)

	require.NoError(t, db.Delete("project:alpha"))
	err := db.Get("project:alpha", got)
	assert.True(t, IsErrKeyNotFound(err))
}

func TestGetOrCreate(t *testing.T) {
	db := setupTestDB(t)
	calls := 0
	create := func() model.Model {
		calls++
		return model.NewProject("x", "X", "")
	}

	_, created, err := db.GetOrCreate("project:x", &model.Project{}, create)
	require.NoError(t, err)
	assert.True(t, created)

	res, created, err := db.GetOrCreate("project:x", &model.Project{}, create)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "X", res.(*model.Project).DisplayName)
	assert.Equal(t, 1, calls)
}

func TestBatchAndDeleteByPrefix(t *testing.T) {
	db := setupTestDB(t)

	err := db.Batch(func(b *Batch) error {
		for i := 0; i < 50; i++ {
			if err := b.Set(model.NewProject(fmt.Sprintf("p%02d", i), "P", "")); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	keys, err := db.ListByPrefix("project:")
	require.NoError(t, err)
	assert.Len(t, keys, 50)
	assert.Equal(t, "project:p00", keys[0])

	n, err := db.DeleteByPrefix("project:p1")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	keys, err = db.ListByPrefix("project:")
	require.NoError(t, err)
	assert.Len(t, keys, 40)
}

func TestBatchRollbackOnError(t *testing.T) {
	db := setupTestDB(t)

	err := db.Batch(func(b *Batch) error {
		require.NoError(t, b.Set(model.NewProject("rollback", "R", "")))
		assert.Equal(t, 1, b.Len())
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	ok, err := db.Exists("project:rollback")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchTooLargeWritesNothing(t *testing.T) {
	db := setupTestDB(t)

	err := db.Batch(func(b *Batch) error {
		if err := b.Set(model.NewProject("first", "F", "")); err != nil {
			return err
		}
		for i := 0; i < 5_000_000; i++ {
			if err := b.Delete(fmt.Sprintf("project:gone-%07d", i)); err != nil {
				return err
			}
		}
		return nil
	})
	require.ErrorIs(t, err, ErrBatchTooLarge)

	ok, err := db.Exists("project:first")
	require.NoError(t, err)
	assert.False(t, ok, "writes staged before the limit are discarded")
}

// =============================================================================
// ProjectRepo Tests
// =============================================================================

func TestProjectRepo(t *testing.T) {
	repo := NewProjectRepo(setupTestDB(t))

	require.NoError(t, repo.Create(model.NewProject("web", "Website", "")))
	assert.ErrorIs(t, repo.Create(model.NewProject("web", "Other", "")), errors.ErrProjectExists)

	p, err := repo.Get("web")
	require.NoError(t, err)
	assert.Equal(t, "Website", p.DisplayName)

	_, err = repo.Get("missing")
	assert.ErrorIs(t, err, errors.ErrProjectNotFound)

	_, created, err := repo.GetOrCreate("api", "API")
	require.NoError(t, err)
	assert.True(t, created)

	p.Archived = true
	require.NoError(t, repo.Update(p))

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "api", all[0].SID)

	active, err := repo.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "api", active[0].SID)

	require.NoError(t, repo.Delete("web"))
	exists, err := repo.Exists("web")
	require.NoError(t, err)
	assert.False(t, exists)
}

// =============================================================================
// TaskRepo Tests
// =============================================================================

func TestTaskRepoCRUD(t *testing.T) {
	repo := NewTaskRepo(setupTestDB(t))

	task := model.NewTask("web", "Write copy")
	require.NoError(t, repo.Create(task))

	got, err := repo.Get("web", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write copy", got.Title)

	byShort, err := repo.GetByShortID(task.ShortID())
	require.NoError(t, err)
	assert.Equal(t, task.ID, byShort.ID)

	_, err = repo.GetByShortID("zzzzzz")
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)

	require.NoError(t, repo.Delete("web", task.ID))
	_, err = repo.Get("web", task.ID)
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
}

func TestTaskRepoAmbiguousShortID(t *testing.T) {
	repo := NewTaskRepo(setupTestDB(t))

	a := model.NewTask("web", "a")
	a.ID = "abc111"
	b := model.NewTask("web", "b")
	b.ID = "abc222"
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))

	_, err := repo.GetByShortID("abc")
	var amb *AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, 2, amb.Matches)
	assert.ErrorIs(t, err, errors.ErrAmbiguousID)

	got, err := repo.GetByShortID("ABC2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Title)
}

func TestTaskRepoListFiltered(t *testing.T) {
	repo := NewTaskRepo(setupTestDB(t))
	now := time.Now()

	soon := now.Add(time.Hour)
	later := now.Add(48 * time.Hour)

	t1 := model.NewTask("web", "later")
	t1.DueDate = &later
	t2 := model.NewTask("web", "soon")
	t2.DueDate = &soon
	t3 := model.NewTask("web", "undated urgent")
	t3.Priority = model.PriorityUrgent
	t4 := model.NewTask("web", "done")
	t4.SetStatus(model.StatusDone, now)
	t5 := model.NewTask("api", "other project")
	t5.Assignee = "sam"

	for _, task := range []*model.Task{t1, t2, t3, t4, t5} {
		require.NoError(t, repo.Create(task))
	}

	open, err := repo.ListFiltered(TaskFilter{ProjectSID: "web"})
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, "soon", open[0].Title)
	assert.Equal(t, "later", open[1].Title)
	assert.Equal(t, "undated urgent", open[2].Title)

	withDone, err := repo.ListFiltered(TaskFilter{ProjectSID: "web", IncludeDone: true})
	require.NoError(t, err)
	assert.Len(t, withDone, 4)

	done, err := repo.ListFiltered(TaskFilter{Status: model.StatusDone})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "done", done[0].Title)

	sams, err := repo.ListFiltered(TaskFilter{Assignee: "SAM"})
	require.NoError(t, err)
	require.Len(t, sams, 1)

	n, err := repo.DeleteByProject("web")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rest, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

// =============================================================================
// CalendarSyncRepo Tests
// =============================================================================

func TestCalendarSyncRepo(t *testing.T) {
	repo := NewCalendarSyncRepo(setupTestDB(t))
	now := time.Now()

	work := model.NewCalendarSync("Work", "https://example.com/work.ics", time.Hour)
	home := model.NewCalendarSync("Home", "https://example.com/home.ics", time.Hour)
	home.RecordSuccess(now, "", 0)
	off := model.NewCalendarSync("Old", "https://example.com/old.ics", time.Hour)
	off.Enabled = false
	off.ProjectSID = "web"

	for _, c := range []*model.CalendarSync{work, home, off} {
		require.NoError(t, repo.Create(c))
	}

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Home", all[0].Name)

	enabled, err := repo.ListEnabled()
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	due, err := repo.ListDue(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Work", due[0].Name)

	linked, err := repo.ListByProject("web")
	require.NoError(t, err)
	require.Len(t, linked, 1)

	byName, err := repo.Find("Home")
	require.NoError(t, err)
	assert.Equal(t, home.ID, byName.ID)

	byPrefix, err := repo.Find(work.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, work.ID, byPrefix.ID)

	_, err = repo.Find("nope")
	assert.ErrorIs(t, err, errors.ErrCalendarNotFound)

	updated, err := repo.SetEnabled(off.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Enabled)

	require.NoError(t, repo.Delete(work.ID))
	_, err = repo.Get(work.ID)
	assert.ErrorIs(t, err, errors.ErrCalendarNotFound)
}

// =============================================================================
// SyncedEventRepo Tests
// =============================================================================

func newEvent(syncID, uid, title string, start time.Time, d time.Duration) *model.SyncedEvent {
	ev := &model.SyncedEvent{
		Key:           model.GenerateEventKey(syncID, uid),
		SyncID:        syncID,
		UID:           uid,
		OccurrenceUID: uid,
		Title:         title,
		Start:         start,
		End:           start.Add(d),
	}
	ev.Hash = ev.ComputeHash()
	return ev
}

func TestSyncedEventRepoApplyDiff(t *testing.T) {
	repo := NewSyncedEventRepo(setupTestDB(t))
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	a := newEvent("s1", "a", "Standup", base, 15*time.Minute)
	b := newEvent("s1", "b", "Review", base.Add(2*time.Hour), time.Hour)
	c := newEvent("s2", "c", "Dentist", base.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, repo.ApplyDiff([]*model.SyncedEvent{a, b, c}, nil))

	s1, err := repo.ListBySync("s1")
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	b.Title = "Design review"
	require.NoError(t, repo.ApplyDiff([]*model.SyncedEvent{b}, []string{a.Key}))

	s1, err = repo.ListBySync("s1")
	require.NoError(t, err)
	require.Len(t, s1, 1)
	assert.Equal(t, "Design review", s1[0].Title)

	got, err := repo.Get(c.Key)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", got.Title)

	byShort, err := repo.GetByShortID(c.ShortID())
	require.NoError(t, err)
	assert.Equal(t, c.Key, byShort.Key)

	n, err := repo.DeleteBySync("s2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = repo.Get(c.Key)
	assert.ErrorIs(t, err, errors.ErrEventNotFound)
}

func TestSyncedEventRepoRanges(t *testing.T) {
	repo := NewSyncedEventRepo(setupTestDB(t))
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	late := newEvent("s1", "late", "Late", day.Add(17*time.Hour), time.Hour)
	early := newEvent("s1", "early", "Early", day.Add(9*time.Hour), time.Hour)
	tomorrow := newEvent("s2", "tmr", "Tomorrow", day.Add(33*time.Hour), time.Hour)
	cancelled := newEvent("s1", "x", "Cancelled", day.Add(10*time.Hour), time.Hour)
	cancelled.Status = "CANCELLED"
	require.NoError(t, repo.ApplyDiff([]*model.SyncedEvent{late, early, tomorrow, cancelled}, nil))

	today, err := repo.ListRange("", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "Early", today[0].Title)
	assert.Equal(t, "Late", today[1].Title)

	onlyS2, err := repo.ListRange("s2", day, day.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, onlyS2, 1)

	upcoming, err := repo.ListUpcoming(day.Add(8*time.Hour+50*time.Minute), 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Early", upcoming[0].Title)
}

// =============================================================================
// ActivityRepo Tests
// =============================================================================

func TestActivityRepo(t *testing.T) {
	repo := NewActivityRepo(setupTestDB(t))
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		a := model.NewActivity(model.ActionCalendarSynced, "calendar", fmt.Sprintf("calsync:%d", i%2), fmt.Sprintf("run %d", i))
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		a.Key = ""
		require.NoError(t, repo.Record(a))
	}

	recent, err := repo.List(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "run 4", recent[0].Message)
	assert.Equal(t, "run 3", recent[1].Message)

	forZero, err := repo.ListByEntity("calsync:0", 0)
	require.NoError(t, err)
	assert.Len(t, forZero, 3)
	assert.Equal(t, "run 4", forZero[0].Message)
}

// =============================================================================
// WebhookRepo / ConfigRepo Tests
// =============================================================================

func TestWebhookRepo(t *testing.T) {
	repo := NewWebhookRepo(setupTestDB(t))

	require.NoError(t, repo.Create(model.NewWebhook("team", model.WebhookTypeSlack, "https://hooks.slack.com/x")))
	require.NoError(t, repo.Create(model.NewWebhook("ops", model.WebhookTypeGeneric, "https://example.com/hook")))
	require.NoError(t, repo.SetEnabled("ops", false))

	enabled, err := repo.ListEnabled()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "team", enabled[0].Name)

	require.NoError(t, repo.UpdateLastUsed("team", fmt.Errorf("HTTP 500")))
	wh, err := repo.Get("team")
	require.NoError(t, err)
	assert.Equal(t, "HTTP 500", wh.LastError)
	assert.False(t, wh.LastUsed.IsZero())

	require.NoError(t, repo.UpdateLastUsed("team", nil))
	wh, err = repo.Get("team")
	require.NoError(t, err)
	assert.Empty(t, wh.LastError)

	_, err = repo.Get("missing")
	assert.ErrorIs(t, err, errors.ErrWebhookNotFound)

	require.NoError(t, repo.Delete("team"))
	exists, err := repo.Exists("team")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConfigRepos(t *testing.T) {
	db := setupTestDB(t)

	cfgRepo := NewConfigRepo(db)
	first, err := cfgRepo.Get()
	require.NoError(t, err)
	require.NotEmpty(t, first.OwnerKey)

	second, err := cfgRepo.Get()
	require.NoError(t, err)
	assert.Equal(t, first.OwnerKey, second.OwnerKey)

	notifyRepo := NewNotifyConfigRepo(db)
	nc, err := notifyRepo.Get()
	require.NoError(t, err)
	assert.Equal(t, "08:00", nc.DailyAgendaAt)

	nc.DailyAgendaAt = "07:30"
	require.NoError(t, notifyRepo.Set(nc))

	nc, err = notifyRepo.Get()
	require.NoError(t, err)
	assert.Equal(t, "07:30", nc.DailyAgendaAt)

	nc.DailyAgendaAt = "late"
	assert.Error(t, notifyRepo.Set(nc))
}
