package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Project Tests
// =============================================================================

func TestNewProject(t *testing.T) {
	p := NewProject("website", "Website Redesign", "#FF5733")
	assert.Equal(t, "project:website", p.Key)
	assert.Equal(t, "Website Redesign", p.DisplayName)
	assert.False(t, p.CreatedAt.IsZero())

	p.SetKey("project:other")
	assert.Equal(t, "project:other", p.GetKey())
}

func TestValidateColor(t *testing.T) {
	assert.True(t, ValidateColor(""))
	assert.True(t, ValidateColor("#00ff00"))
	assert.False(t, ValidateColor("00ff00"))
	assert.False(t, ValidateColor("#00ff0"))
}

// =============================================================================
// Task Tests
// =============================================================================

func TestNewTask(t *testing.T) {
	task := NewTask("website", "Write copy")
	assert.True(t, strings.HasPrefix(task.Key, "task:website:"))
	assert.Equal(t, StatusTodo, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Len(t, task.ShortID(), 6)
	assert.True(t, strings.HasPrefix(task.ID, task.ShortID()))
}

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		in   string
		want TaskStatus
		ok   bool
	}{
		{"todo", StatusTodo, true},
		{"In Progress", StatusInProgress, true},
		{"in-progress", StatusInProgress, true},
		{"REVIEW", StatusReview, true},
		{"done", StatusDone, true},
		{"later", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTaskStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("")
	assert.True(t, ok)
	assert.Equal(t, PriorityMedium, p)

	p, ok = ParsePriority("Urgent")
	assert.True(t, ok)
	assert.Equal(t, 0, p.Rank())

	_, ok = ParsePriority("whenever")
	assert.False(t, ok)

	assert.Less(t, PriorityHigh.Rank(), PriorityLow.Rank())
}

func TestTaskSetStatus(t *testing.T) {
	task := NewTask("p", "t")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	task.SetStatus(StatusDone, now)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)
	assert.True(t, task.IsDone())

	// Re-completing keeps the first completion time.
	task.SetStatus(StatusDone, now.Add(time.Hour))
	assert.Equal(t, now, *task.CompletedAt)

	task.SetStatus(StatusInProgress, now)
	assert.Nil(t, task.CompletedAt)
}

func TestTaskDueHelpers(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(30 * time.Minute)

	task := NewTask("p", "t")
	assert.False(t, task.IsOverdue(now))
	assert.False(t, task.IsDueWithin(now, time.Hour))

	task.DueDate = &due
	assert.True(t, task.IsDueWithin(now, time.Hour))
	assert.False(t, task.IsDueWithin(now, 10*time.Minute))
	assert.False(t, task.IsOverdue(now))
	assert.True(t, task.IsOverdue(now.Add(time.Hour)))

	task.SetStatus(StatusDone, now)
	assert.False(t, task.IsOverdue(now.Add(time.Hour)))
	assert.False(t, task.IsDueWithin(now, time.Hour))
}

// =============================================================================
// Calendar Tests
// =============================================================================

func TestCalendarSyncIsDue(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cal := NewCalendarSync("Work", "https://example.com/cal.ics", 30*time.Minute)

	assert.Equal(t, SyncStatusNever, cal.LastStatus)
	assert.True(t, cal.IsDue(now), "never-synced calendar is due")
	assert.True(t, cal.NextSyncAt().IsZero())

	cal.RecordSuccess(now, `"abc"`, 12)
	assert.False(t, cal.IsDue(now.Add(29*time.Minute)))
	assert.True(t, cal.IsDue(now.Add(30*time.Minute)))
	assert.Equal(t, now.Add(30*time.Minute), cal.NextSyncAt())
	assert.Equal(t, 12, cal.EventCount)

	cal.Enabled = false
	assert.False(t, cal.IsDue(now.Add(time.Hour)))
}

func TestCalendarSyncRecordFailure(t *testing.T) {
	now := time.Now()
	cal := NewCalendarSync("Work", "https://example.com/cal.ics", time.Hour)
	cal.RecordSuccess(now, "etag", 3)

	cal.RecordFailure(now.Add(time.Hour), errors.New("503"))
	assert.Equal(t, SyncStatusError, cal.LastStatus)
	assert.Equal(t, "503", cal.LastError)
	assert.Equal(t, "etag", cal.ETag, "failure keeps the last good etag")

	cal.RecordSuccess(now.Add(2*time.Hour), "etag2", 4)
	assert.Empty(t, cal.LastError)
}

// =============================================================================
// SyncedEvent Tests
// =============================================================================

func newTestEvent() *SyncedEvent {
	start := time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)
	return &SyncedEvent{
		Key:           GenerateEventKey("sync1", "uid1"),
		SyncID:        "sync1",
		UID:           "uid1",
		OccurrenceUID: "uid1",
		Title:         "Standup",
		Start:         start,
		End:           start.Add(15 * time.Minute),
	}
}

func TestEventKeys(t *testing.T) {
	e := newTestEvent()
	assert.Equal(t, "event:sync1:uid1", e.Key)
	assert.True(t, strings.HasPrefix(e.Key, EventPrefixForSync("sync1")))
	assert.Len(t, e.ShortID(), 6)
	assert.Equal(t, e.ShortID(), newTestEvent().ShortID())
}

func TestEventComputeHash(t *testing.T) {
	a := newTestEvent()
	b := newTestEvent()
	assert.Equal(t, a.ComputeHash(), b.ComputeHash())

	b.Location = "Room 4"
	assert.NotEqual(t, a.ComputeHash(), b.ComputeHash())

	c := newTestEvent()
	c.Start = c.Start.In(time.FixedZone("EST", -5*3600))
	assert.Equal(t, a.ComputeHash(), c.ComputeHash(), "hash is zone independent")
}

func TestEventTimeHelpers(t *testing.T) {
	e := newTestEvent()
	assert.Equal(t, 15*time.Minute, e.Duration())

	assert.True(t, e.StartsWithin(e.Start.Add(-10*time.Minute), 15*time.Minute))
	assert.False(t, e.StartsWithin(e.Start.Add(-20*time.Minute), 15*time.Minute))
	assert.False(t, e.StartsWithin(e.Start, 15*time.Minute))

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.True(t, e.Overlaps(day, day.AddDate(0, 0, 1)))
	assert.False(t, e.Overlaps(day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)))

	e.End = e.Start
	assert.True(t, e.Overlaps(e.Start, e.Start.Add(time.Minute)), "zero-length event overlaps its own instant")

	e.Status = "cancelled"
	assert.True(t, e.IsCancelled())
}

// =============================================================================
// Activity Tests
// =============================================================================

func TestActivityKeysSortChronologically(t *testing.T) {
	early := GenerateActivityKey(time.Unix(1, 0), "b")
	late := GenerateActivityKey(time.Unix(100, 0), "a")
	assert.Less(t, early, late)

	a := NewActivity(ActionCalendarSynced, "calendar", "calsync:1", "synced").WithMeta("added", "3")
	assert.Equal(t, "3", a.Metadata["added"])
	assert.True(t, strings.HasPrefix(a.Key, "activity:"))
}

// =============================================================================
// Notification Tests
// =============================================================================

func TestNewNotification(t *testing.T) {
	n := NewNotification(NotifySyncFailed, "Sync failed", "Work calendar").WithField("error", "503")
	assert.Equal(t, ColorError, n.Color)
	assert.Equal(t, "503", n.Fields["error"])
	assert.Equal(t, "Calendar Sync Failed", n.TypeLabel())
	assert.Equal(t, "warning", n.Icon())

	n.WithColor(ColorInfo)
	assert.Equal(t, ColorInfo, n.Color)
}

func TestNotifyConfig(t *testing.T) {
	cfg := DefaultNotifyConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsTypeEnabled(NotifyTaskDue))
	assert.True(t, cfg.IsTypeEnabled(NotifyTest), "unknown types default to enabled")

	clone := cfg.Clone()
	clone.SetTypeEnabled(NotifyTaskDue, false)
	clone.EventLeadTimes[0] = "5m"
	assert.True(t, cfg.IsTypeEnabled(NotifyTaskDue), "clone must not share the map")
	assert.Equal(t, "15m", cfg.EventLeadTimes[0])

	bad := DefaultNotifyConfig()
	bad.EventLeadTimes = []string{"soon"}
	var ve *ValidationError
	require.ErrorAs(t, bad.Validate(), &ve)
	assert.Equal(t, "event_lead_times", ve.Field)

	bad = DefaultNotifyConfig()
	bad.TaskLeadTimes = []string{"30s"}
	assert.Error(t, bad.Validate())

	bad = DefaultNotifyConfig()
	bad.DailyAgendaAt = "8am"
	assert.Error(t, bad.Validate())
}

// =============================================================================
// Webhook Tests
// =============================================================================

func TestWebhook(t *testing.T) {
	w := NewWebhook("team", WebhookTypeDiscord, "https://discord.com/api/webhooks/123/secret")
	assert.Equal(t, "webhook:team", w.Key)
	assert.True(t, w.IsEnabled())
	assert.Equal(t, "https://discord.com/***", w.MaskedURL())

	assert.True(t, IsValidWebhookType("slack"))
	assert.False(t, IsValidWebhookType("email"))
	assert.True(t, IsValidWebhookName("ops-alerts_1"))
	assert.False(t, IsValidWebhookName("-bad"))

	assert.Equal(t, WebhookTypeSlack, DetectWebhookType("https://hooks.slack.com/services/x"))
	assert.Equal(t, WebhookTypeTeams, DetectWebhookType("https://acme.webhook.office.com/x"))
	assert.Equal(t, WebhookTypeGeneric, DetectWebhookType("https://example.com/hook"))
}
