package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/parser"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// reminderLog remembers which reminders were sent so each (item, lead)
// pair fires once. Entries expire once the item's time has passed.
type reminderLog struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newReminderLog() *reminderLog {
	return &reminderLog{entries: make(map[string]time.Time)}
}

// once records key until expires and reports whether it was new.
func (l *reminderLog) once(key string, expires time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[key]; ok {
		return false
	}
	l.entries[key] = expires
	return true
}

func (l *reminderLog) seen(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[key]
	return ok
}

func (l *reminderLog) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, expires := range l.entries {
		if now.After(expires) {
			delete(l.entries, key)
		}
	}
}

func (l *reminderLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// leadTime is a parsed reminder offset together with its configured text.
type leadTime struct {
	label string
	d     time.Duration
}

// parseLeadTimes parses and sorts lead times ascending. Invalid entries are
// skipped.
func parseLeadTimes(values []string) []leadTime {
	var leads []leadTime
	for _, v := range values {
		r := parser.ParseDuration(v)
		if !r.Valid {
			logging.Warn("ignoring invalid lead time", "value", v, logging.KeyError, r.Error)
			continue
		}
		leads = append(leads, leadTime{label: v, d: r.Duration})
	}
	slices.SortFunc(leads, func(a, b leadTime) int {
		return cmp.Compare(a.d, b.d)
	})
	return leads
}

// dueLeads returns the leads whose window contains until, smallest first.
// A lead qualifies once until has dropped to or below it.
func dueLeads(leads []leadTime, until time.Duration) []leadTime {
	if until <= 0 {
		return nil
	}
	var out []leadTime
	for _, l := range leads {
		if until <= l.d {
			out = append(out, l)
		}
	}
	return out
}

// fireOnce marks every qualifying lead as sent and reports whether any of
// them had not been sent before. Only one notification goes out per check
// even when several leads qualify at once, for example after the daemon
// starts inside a lead window.
func fireOnce(log *reminderLog, base string, leads []leadTime, expires time.Time) bool {
	fresh := false
	for _, l := range leads {
		if log.once(base+"|"+l.label, expires) {
			fresh = true
		}
	}
	return fresh
}

// EventReminderChecker sends a reminder ahead of each upcoming calendar event.
type EventReminderChecker struct {
	events       *storage.SyncedEventRepo
	syncs        *storage.CalendarSyncRepo
	notifyConfig *storage.NotifyConfigRepo
	notifier     Notifier
	sent         *reminderLog
	now          func() time.Time
	debug        bool
}

// NewEventReminderChecker creates an event reminder checker.
func NewEventReminderChecker(db *storage.DB, notifier Notifier) *EventReminderChecker {
	return &EventReminderChecker{
		events:       storage.NewSyncedEventRepo(db),
		syncs:        storage.NewCalendarSyncRepo(db),
		notifyConfig: storage.NewNotifyConfigRepo(db),
		notifier:     notifier,
		sent:         newReminderLog(),
		now:          time.Now,
	}
}

// SetDebug enables debug output.
func (c *EventReminderChecker) SetDebug(debug bool) {
	c.debug = debug
}

// Check sends due event reminders and returns how many were sent.
func (c *EventReminderChecker) Check(ctx context.Context) int {
	log := logging.FromContext(ctx).With(logging.KeyOperation, "event_reminders")
	cfg, err := c.notifyConfig.Get()
	if err != nil {
		log.Warn("failed to load notify config", logging.KeyError, err)
		return 0
	}
	if !cfg.IsTypeEnabled(model.NotifyEventReminder) {
		return 0
	}
	leads := parseLeadTimes(cfg.EventLeadTimes)
	if len(leads) == 0 {
		return 0
	}

	now := c.now()
	c.sent.prune(now)

	upcoming, err := c.events.ListUpcoming(now, leads[len(leads)-1].d)
	if err != nil {
		log.Warn("failed to list upcoming events", logging.KeyError, err)
		return 0
	}

	sent := 0
	for _, ev := range upcoming {
		qualifying := dueLeads(leads, ev.Start.Sub(now))
		// The start time is part of the key so a rescheduled event is
		// reminded again.
		base := ev.Key + "|" + ev.Start.UTC().Format(time.RFC3339)
		if !fireOnce(c.sent, base, qualifying, ev.Start) {
			continue
		}
		send(ctx, c.notifier, c.eventNotification(ev, now), c.debug)
		sent++
	}
	if c.debug && sent > 0 {
		log.Debug("event reminders sent", logging.KeyCount, sent)
	}
	return sent
}

func (c *EventReminderChecker) eventNotification(ev *model.SyncedEvent, now time.Time) *model.Notification {
	n := model.NewNotification(model.NotifyEventReminder,
		fmt.Sprintf("Upcoming: %s", ev.Title),
		fmt.Sprintf("Starts %s", parser.FormatTimeUntil(ev.Start, now)))
	n.Timestamp = now

	n.WithField("When", parser.FormatDue(ev.Start, now))
	if ev.Location != "" {
		n.WithField("Location", ev.Location)
	}
	if cal, err := c.syncs.Get(ev.SyncID); err == nil {
		n.WithField("Calendar", cal.Name)
	}
	if ev.ProjectSID != "" {
		n.WithField("Project", ev.ProjectSID)
	}
	return n
}

// TaskDueChecker sends reminders ahead of open task due dates.
type TaskDueChecker struct {
	tasks        *storage.TaskRepo
	notifyConfig *storage.NotifyConfigRepo
	notifier     Notifier
	sent         *reminderLog
	now          func() time.Time
	debug        bool
}

// NewTaskDueChecker creates a task due-date checker.
func NewTaskDueChecker(db *storage.DB, notifier Notifier) *TaskDueChecker {
	return &TaskDueChecker{
		tasks:        storage.NewTaskRepo(db),
		notifyConfig: storage.NewNotifyConfigRepo(db),
		notifier:     notifier,
		sent:         newReminderLog(),
		now:          time.Now,
	}
}

// SetDebug enables debug output.
func (c *TaskDueChecker) SetDebug(debug bool) {
	c.debug = debug
}

// Check sends due task reminders and returns how many were sent.
func (c *TaskDueChecker) Check(ctx context.Context) int {
	log := logging.FromContext(ctx).With(logging.KeyOperation, "task_reminders")
	cfg, err := c.notifyConfig.Get()
	if err != nil {
		log.Warn("failed to load notify config", logging.KeyError, err)
		return 0
	}
	if !cfg.IsTypeEnabled(model.NotifyTaskDue) {
		return 0
	}
	leads := parseLeadTimes(cfg.TaskLeadTimes)
	if len(leads) == 0 {
		return 0
	}

	now := c.now()
	c.sent.prune(now)

	tasks, err := c.tasks.ListFiltered(storage.TaskFilter{})
	if err != nil {
		log.Warn("failed to list tasks", logging.KeyError, err)
		return 0
	}

	sent := 0
	for _, t := range tasks {
		if t.DueDate == nil || t.IsDone() {
			continue
		}
		due := *t.DueDate
		qualifying := dueLeads(leads, due.Sub(now))
		base := t.Key + "|" + due.UTC().Format(time.RFC3339)
		if !fireOnce(c.sent, base, qualifying, due) {
			continue
		}
		send(ctx, c.notifier, taskNotification(t, now), c.debug)
		sent++
	}
	if c.debug && sent > 0 {
		log.Debug("task reminders sent", logging.KeyCount, sent)
	}
	return sent
}

func taskNotification(t *model.Task, now time.Time) *model.Notification {
	n := model.NewNotification(model.NotifyTaskDue,
		fmt.Sprintf("Task due: %s", t.Title),
		fmt.Sprintf("Due %s", parser.FormatTimeUntil(*t.DueDate, now)))
	n.Timestamp = now

	n.WithField("Project", t.ProjectSID)
	n.WithField("Priority", string(t.Priority))
	if t.Assignee != "" {
		n.WithField("Assignee", t.Assignee)
	}
	n.WithField("Due", parser.FormatDue(*t.DueDate, now))
	if t.Priority == model.PriorityUrgent {
		n.WithColor(model.ColorError)
	}
	return n
}
