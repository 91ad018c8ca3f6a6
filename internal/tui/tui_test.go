package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/storage"
)

var now = time.Date(2024, 3, 6, 9, 0, 0, 0, time.Local)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func setupTestDB(t *testing.T) *storage.DB {
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addEvent(t *testing.T, db *storage.DB, syncID, title string, start time.Time) *model.SyncedEvent {
	ev := &model.SyncedEvent{
		Key:           model.GenerateEventKey(syncID, title),
		SyncID:        syncID,
		UID:           title,
		OccurrenceUID: title,
		Title:         title,
		Start:         start,
		End:           start.Add(time.Hour),
	}
	require.NoError(t, db.Set(ev))
	return ev
}

func newTestDashboard(t *testing.T, db *storage.DB) *DashboardModel {
	m := NewDashboardModel(DashboardConfig{
		EventRepo:    storage.NewSyncedEventRepo(db),
		TaskRepo:     storage.NewTaskRepo(db),
		CalendarRepo: storage.NewCalendarSyncRepo(db),
		ActivityRepo: storage.NewActivityRepo(db),
		Now:          func() time.Time { return now },
	})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(refreshMsg{})
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// Style Tests
// =============================================================================

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		filled     int
	}{
		{"zero", 0, 0},
		{"half", 50, 5},
		{"full", 100, 10},
		{"over", 150, 10},
		{"negative", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := ProgressBar(tt.percentage, 10)
			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, 10-tt.filled, strings.Count(bar, "░"))
		})
	}
}

func TestFormatProjectTask(t *testing.T) {
	t.Run("project_only", func(t *testing.T) {
		result := FormatProjectTask("apollo", "")
		assert.Contains(t, result, "apollo")
		assert.NotContains(t, result, "/")
	})

	t.Run("project_and_task", func(t *testing.T) {
		result := FormatProjectTask("apollo", "a1b2c3d4")
		assert.Contains(t, result, "apollo")
		assert.Contains(t, result, "/")
		assert.Contains(t, result, "a1b2c3d4")
	})
}

func TestBoxWidth(t *testing.T) {
	assert.Equal(t, 96, boxWidth(100))
	assert.Equal(t, 20, boxWidth(10))
}

// =============================================================================
// Component Tests
// =============================================================================

func TestNextEventComponent(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		view := (&NextEventComponent{Now: now, Width: 80}).View()
		assert.Contains(t, view, "No upcoming events")
	})

	t.Run("upcoming", func(t *testing.T) {
		ev := &model.SyncedEvent{Title: "Design review", Location: "Room 4",
			Start: now.Add(30 * time.Minute), End: now.Add(90 * time.Minute)}
		view := (&NextEventComponent{Event: ev, Calendar: "Work", Now: now, Width: 80}).View()
		assert.Contains(t, view, "NEXT")
		assert.Contains(t, view, "in 30 minutes")
		assert.Contains(t, view, "Design review")
		assert.Contains(t, view, "@ Room 4")
		assert.Contains(t, view, "Work")
		assert.Contains(t, view, "Today at 9:30 AM - 10:30 AM")
	})

	t.Run("in_progress", func(t *testing.T) {
		ev := &model.SyncedEvent{Title: "Standup", Start: now.Add(-5 * time.Minute), End: now.Add(10 * time.Minute)}
		view := (&NextEventComponent{Event: ev, Now: now, Width: 80}).View()
		assert.Contains(t, view, "NOW")
		assert.Contains(t, view, "ends in 10 minutes")
	})

	t.Run("all_day", func(t *testing.T) {
		ev := &model.SyncedEvent{Title: "Offsite", AllDay: true, Start: now.Add(-9 * time.Hour), End: now.Add(15 * time.Hour)}
		view := (&NextEventComponent{Event: ev, Now: now, Width: 80}).View()
		assert.Contains(t, view, "All day")
		assert.NotContains(t, view, "ends")
	})
}

func TestEventsComponent(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		view := (&EventsComponent{Now: now, Width: 100}).View()
		assert.Contains(t, view, "Nothing scheduled")
	})

	t.Run("limit", func(t *testing.T) {
		var events []*model.SyncedEvent
		for i := range 4 {
			events = append(events, &model.SyncedEvent{SyncID: "s", Title: "Event " + string(rune('A'+i)),
				Start: now.Add(time.Duration(i+1) * time.Hour), End: now.Add(time.Duration(i+2) * time.Hour)})
		}
		view := (&EventsComponent{Events: events, Calendars: map[string]string{"s": "Work"}, Now: now, Width: 100, Limit: 2}).View()
		assert.Contains(t, view, "Event A")
		assert.Contains(t, view, "Event B")
		assert.NotContains(t, view, "Event C")
		assert.Contains(t, view, "2 more")
		assert.Contains(t, view, "[Work]")
		assert.Contains(t, view, "Today at 10:00 AM")
	})
}

func TestTasksComponent(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		view := (&TasksComponent{Now: now, Width: 100}).View()
		assert.Contains(t, view, "No open tasks")
	})

	t.Run("rows_and_progress", func(t *testing.T) {
		overdue := model.NewTask("apollo", "Send invoice")
		overdue.DueDate = at(-2 * time.Hour)
		urgent := model.NewTask("apollo", "Fix login")
		urgent.Priority = model.PriorityUrgent

		view := (&TasksComponent{
			Tasks:     []*model.Task{overdue, urgent},
			Selected:  1,
			DueToday:  4,
			DoneToday: 1,
			Now:       now,
			Width:     120,
		}).View()
		assert.Contains(t, view, "1/4 due today done")
		assert.Contains(t, view, "Send invoice")
		assert.Contains(t, view, "Today at 7:00 AM")
		assert.Contains(t, view, "> ")
		assert.Contains(t, view, "!! ")
		assert.Contains(t, view, "apollo/"+urgent.ShortID())
	})

	t.Run("scrolls_to_cursor", func(t *testing.T) {
		var tasks []*model.Task
		for i := range 5 {
			tasks = append(tasks, model.NewTask("p", "Task "+string(rune('A'+i))))
		}
		view := (&TasksComponent{Tasks: tasks, Selected: 4, Now: now, Width: 100, Limit: 2}).View()
		assert.NotContains(t, view, "Task A")
		assert.Contains(t, view, "Task D")
		assert.Contains(t, view, "Task E")
		assert.Contains(t, view, "3 more")
	})
}

func TestCalendarsComponent(t *testing.T) {
	assert.Empty(t, (&CalendarsComponent{}).View())

	ok := model.NewCalendarSync("Work", "https://example.com/w.ics", time.Hour)
	ok.RecordSuccess(now, "", 7)
	broken := model.NewCalendarSync("Home", "https://example.com/h.ics", time.Hour)
	broken.RecordFailure(now, assert.AnError)
	fresh := model.NewCalendarSync("New", "https://example.com/n.ics", time.Hour)

	view := (&CalendarsComponent{Calendars: []*model.CalendarSync{ok, broken, fresh}, Width: 120}).View()
	assert.Contains(t, view, "Work  7 events")
	assert.Contains(t, view, "Home  error: "+assert.AnError.Error())
	assert.Contains(t, view, "New  never synced")
	assert.NotContains(t, view, "example.com")
}

func TestHelpBar(t *testing.T) {
	bar := HelpBar()
	for _, want := range []string{"j/k", "move", "x", "done", "r", "refresh", "q", "quit"} {
		assert.Contains(t, bar, want)
	}
}

// =============================================================================
// Dashboard Tests
// =============================================================================

func TestDashboardDefaults(t *testing.T) {
	m := NewDashboardModel(DashboardConfig{})
	assert.Equal(t, 30*time.Second, m.refreshInterval)
	assert.Equal(t, 48*time.Hour, m.horizon)
	assert.Equal(t, 8, m.maxEvents)
	assert.Equal(t, 10, m.maxTasks)
	assert.NotNil(t, m.now)
	assert.Equal(t, "Loading...", m.View())
}

func TestDashboardLoadData(t *testing.T) {
	db := setupTestDB(t)
	cal := model.NewCalendarSync("Work", "https://example.com/w.ics", time.Hour)
	require.NoError(t, storage.NewCalendarSyncRepo(db).Create(cal))

	addEvent(t, db, cal.ID, "Standup", now.Add(-30*time.Minute))
	addEvent(t, db, cal.ID, "Planning", now.Add(3*time.Hour))
	addEvent(t, db, cal.ID, "Next week", now.Add(7*24*time.Hour))

	tasks := storage.NewTaskRepo(db)
	dueToday := model.NewTask("apollo", "Write notes")
	dueToday.DueDate = at(4 * time.Hour)
	require.NoError(t, tasks.Create(dueToday))
	doneToday := model.NewTask("apollo", "Book room")
	doneToday.DueDate = at(time.Hour)
	doneToday.SetStatus(model.StatusDone, now)
	require.NoError(t, tasks.Create(doneToday))
	require.NoError(t, tasks.Create(model.NewTask("apollo", "Someday")))

	m := newTestDashboard(t, db)
	require.NoError(t, m.err)
	assert.Len(t, m.events, 2, "events beyond the horizon are hidden")
	assert.Len(t, m.tasks, 2, "done tasks are hidden")
	assert.Equal(t, 2, m.dueToday)
	assert.Equal(t, 1, m.doneToday)
	assert.Equal(t, "Work", m.calNames[cal.ID])

	next := m.nextEvent(now)
	require.NotNil(t, next)
	assert.Equal(t, "Standup", next.Title, "an event in progress comes first")

	view := m.View()
	assert.Contains(t, view, "ProjectHub Agenda")
	assert.Contains(t, view, "NOW")
	assert.Contains(t, view, "Planning")
	assert.Contains(t, view, "Write notes")
	assert.Contains(t, view, "1/2 due today done")
	assert.NotContains(t, view, "Book room")
}

func TestDashboardNavigation(t *testing.T) {
	db := setupTestDB(t)
	tasks := storage.NewTaskRepo(db)
	for _, title := range []string{"First", "Second"} {
		task := model.NewTask("apollo", title)
		task.DueDate = at(time.Hour)
		if title == "Second" {
			task.DueDate = at(2 * time.Hour)
		}
		require.NoError(t, tasks.Create(task))
	}

	m := newTestDashboard(t, db)
	assert.Equal(t, 0, m.selected)

	m.Update(key("k"))
	assert.Equal(t, 0, m.selected)
	m.Update(key("j"))
	assert.Equal(t, 1, m.selected)
	m.Update(key("j"))
	assert.Equal(t, 1, m.selected)
	assert.Equal(t, "Second", m.selectedTask().Title)
}

func TestDashboardCompleteTask(t *testing.T) {
	db := setupTestDB(t)
	tasks := storage.NewTaskRepo(db)
	task := model.NewTask("apollo", "Ship it")
	require.NoError(t, tasks.Create(task))

	m := newTestDashboard(t, db)
	require.Len(t, m.tasks, 1)

	m.Update(key("x"))
	require.NoError(t, m.err)
	assert.Contains(t, m.message, "Done: Ship it")
	assert.Empty(t, m.tasks)
	assert.Equal(t, 0, m.selected)

	stored, err := tasks.Get("apollo", task.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDone())
	assert.NotNil(t, stored.CompletedAt)

	entries, err := storage.NewActivityRepo(db).List(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionTaskMoved, entries[0].Action)
	assert.Equal(t, "done", entries[0].Metadata["to"])

	m.Update(key("x"))
	assert.Equal(t, "No task selected", m.message)
}

func TestDashboardQuitAndRefresh(t *testing.T) {
	m := newTestDashboard(t, setupTestDB(t))

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	m.Update(key("r"))
	assert.Equal(t, "Refreshed", m.message)

	_, cmd = m.Update(tickMsg(now))
	assert.NotNil(t, cmd)
}
