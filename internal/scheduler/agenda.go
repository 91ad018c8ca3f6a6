package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/parser"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// agendaWindow is how long after the configured time the agenda may still go out.
const agendaWindow = 5 * time.Minute

// agendaMaxLines caps each list in the agenda message.
const agendaMaxLines = 10

// AgendaGenerator sends the daily agenda: today's events plus open tasks
// due today or overdue.
type AgendaGenerator struct {
	events       *storage.SyncedEventRepo
	tasks        *storage.TaskRepo
	notifyConfig *storage.NotifyConfigRepo
	notifier     Notifier
	now          func() time.Time
	debug        bool

	mu       sync.Mutex
	lastSent time.Time
}

// NewAgendaGenerator creates a daily agenda generator.
func NewAgendaGenerator(db *storage.DB, notifier Notifier) *AgendaGenerator {
	return &AgendaGenerator{
		events:       storage.NewSyncedEventRepo(db),
		tasks:        storage.NewTaskRepo(db),
		notifyConfig: storage.NewNotifyConfigRepo(db),
		notifier:     notifier,
		now:          time.Now,
	}
}

// SetDebug enables debug output.
func (g *AgendaGenerator) SetDebug(debug bool) {
	g.debug = debug
}

// Check sends the agenda if the configured time has just passed and it has
// not gone out today. It reports whether it sent.
func (g *AgendaGenerator) Check(ctx context.Context) bool {
	log := logging.FromContext(ctx).With(logging.KeyOperation, "daily_agenda")
	cfg, err := g.notifyConfig.Get()
	if err != nil {
		log.Warn("failed to load notify config", logging.KeyError, err)
		return false
	}
	if !cfg.IsTypeEnabled(model.NotifyDailyAgenda) || cfg.DailyAgendaAt == "" {
		return false
	}
	target, err := time.Parse("15:04", cfg.DailyAgendaAt)
	if err != nil {
		log.Warn("invalid daily_agenda_at", "value", cfg.DailyAgendaAt, logging.KeyError, err)
		return false
	}

	now := g.now()
	g.mu.Lock()
	due := shouldSendAgenda(target, g.lastSent, now)
	if due {
		g.lastSent = now
	}
	g.mu.Unlock()
	if !due {
		return false
	}

	n, err := g.Build(now)
	if err != nil {
		log.Warn("failed to build agenda", logging.KeyError, err)
		return false
	}
	send(ctx, g.notifier, n, g.debug)
	return true
}

// shouldSendAgenda reports whether now falls within agendaWindow after
// today's target time and nothing was sent yet today.
func shouldSendAgenda(target, lastSent, now time.Time) bool {
	todayTarget := time.Date(now.Year(), now.Month(), now.Day(),
		target.Hour(), target.Minute(), 0, 0, now.Location())
	if now.Before(todayTarget) || now.After(todayTarget.Add(agendaWindow)) {
		return false
	}
	if !lastSent.IsZero() && parser.StartOfDay(lastSent.In(now.Location())).Equal(parser.StartOfDay(now)) {
		return false
	}
	return true
}

// Build assembles the agenda notification for the day containing now.
func (g *AgendaGenerator) Build(now time.Time) (*model.Notification, error) {
	dayStart := parser.StartOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := g.events.ListRange("", dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's events: %w", err)
	}
	tasks, err := g.tasks.ListFiltered(storage.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var dueToday, overdue []*model.Task
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		switch {
		case t.DueDate.Before(dayStart):
			overdue = append(overdue, t)
		case t.DueDate.Before(dayEnd):
			dueToday = append(dueToday, t)
		}
	}

	var msg strings.Builder
	if len(events) == 0 {
		msg.WriteString("No events today.\n")
	} else {
		msg.WriteString("Events:\n")
		for i, ev := range events {
			if i == agendaMaxLines {
				fmt.Fprintf(&msg, "  … and %d more\n", len(events)-i)
				break
			}
			fmt.Fprintf(&msg, "  • %s %s\n", eventTimeLabel(ev, now), ev.Title)
		}
	}
	writeTasks(&msg, "Due today", dueToday, now)
	writeTasks(&msg, "Overdue", overdue, now)

	n := model.NewNotification(model.NotifyDailyAgenda,
		"Agenda for "+now.Format("Monday, Jan 2"),
		strings.TrimRight(msg.String(), "\n"))
	n.Timestamp = now
	n.WithField("Events", strconv.Itoa(len(events)))
	n.WithField("Tasks", strconv.Itoa(len(dueToday)))
	n.WithField("Overdue", strconv.Itoa(len(overdue)))
	if len(overdue) > 0 {
		n.WithColor(model.ColorWarning)
	}
	return n, nil
}

func eventTimeLabel(ev *model.SyncedEvent, now time.Time) string {
	if ev.AllDay {
		return "all day"
	}
	return ev.Start.In(now.Location()).Format("3:04 PM")
}

func writeTasks(msg *strings.Builder, heading string, tasks []*model.Task, now time.Time) {
	if len(tasks) == 0 {
		return
	}
	fmt.Fprintf(msg, "\n%s:\n", heading)
	for i, t := range tasks {
		if i == agendaMaxLines {
			fmt.Fprintf(msg, "  … and %d more\n", len(tasks)-i)
			return
		}
		fmt.Fprintf(msg, "  • [%s] %s (%s)\n", t.ProjectSID, t.Title, parser.FormatDue(*t.DueDate, now))
	}
}
