// Package scheduler runs the daemon's periodic jobs on a cron schedule:
// event and task reminders and the daily agenda every minute, and the
// due-calendar sweep every few minutes.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/notify"
)

// minuteSpec fires at second zero of every minute.
const minuteSpec = "0 * * * * *"

// Notifier delivers a notification to every enabled webhook.
type Notifier interface {
	SendNotification(ctx context.Context, n *model.Notification) []notify.DispatchResult
}

// Scheduler manages scheduled jobs using cron.
type Scheduler struct {
	cron           *cron.Cron
	debug          bool
	lastCheck      time.Time
	mu             sync.Mutex
	now            func() time.Time
	sleepThreshold time.Duration
	syncSpec       string

	ctx    context.Context
	cancel context.CancelFunc

	eventReminders *EventReminderChecker
	taskReminders  *TaskDueChecker
	agenda         *AgendaGenerator
	syncRunner     *SyncRunner
}

// NewScheduler creates a scheduler configured from config.Global.Scheduler.
func NewScheduler() *Scheduler {
	cfg := config.Global.Scheduler
	syncSpec := cfg.SyncSpec
	if syncSpec == "" {
		syncSpec = config.DefaultRuntimeConfig().Scheduler.SyncSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:           cron.New(cron.WithSeconds()),
		now:            time.Now,
		sleepThreshold: cfg.SleepThreshold,
		syncSpec:       syncSpec,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// SetDebug enables debug logging in the scheduler and its jobs.
func (s *Scheduler) SetDebug(debug bool) {
	s.debug = debug
	if s.eventReminders != nil {
		s.eventReminders.SetDebug(debug)
	}
	if s.taskReminders != nil {
		s.taskReminders.SetDebug(debug)
	}
	if s.agenda != nil {
		s.agenda.SetDebug(debug)
	}
	if s.syncRunner != nil {
		s.syncRunner.SetDebug(debug)
	}
}

// SetEventReminderChecker sets the event reminder job.
func (s *Scheduler) SetEventReminderChecker(checker *EventReminderChecker) {
	s.eventReminders = checker
	if s.debug {
		checker.SetDebug(s.debug)
	}
}

// SetTaskDueChecker sets the task due-date reminder job.
func (s *Scheduler) SetTaskDueChecker(checker *TaskDueChecker) {
	s.taskReminders = checker
	if s.debug {
		checker.SetDebug(s.debug)
	}
}

// SetAgendaGenerator sets the daily agenda job.
func (s *Scheduler) SetAgendaGenerator(generator *AgendaGenerator) {
	s.agenda = generator
	if s.debug {
		generator.SetDebug(s.debug)
	}
}

// SetSyncRunner sets the calendar sync job.
func (s *Scheduler) SetSyncRunner(runner *SyncRunner) {
	s.syncRunner = runner
	if s.debug {
		runner.SetDebug(s.debug)
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	s.lastCheck = s.now()
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(minuteSpec, s.runMinuteChecks); err != nil {
		return fmt.Errorf("failed to add minute checks: %w", err)
	}
	if _, err := s.cron.AddFunc(s.syncSpec, s.runSyncChecks); err != nil {
		return fmt.Errorf("failed to add sync checks %q: %w", s.syncSpec, err)
	}

	s.cron.Start()
	logging.Info("scheduler started", "sync_spec", s.syncSpec)
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	logging.Info("scheduler stopped")
}

// runMinuteChecks runs the reminder and agenda jobs. After a gap longer
// than the sleep threshold, one round is skipped so a laptop waking up does
// not fire a burst of stale reminders.
func (s *Scheduler) runMinuteChecks() {
	s.mu.Lock()
	now := s.now()
	elapsed := now.Sub(s.lastCheck)
	s.lastCheck = now
	s.mu.Unlock()

	if s.sleepThreshold > 0 && elapsed > s.sleepThreshold {
		logging.Info("skipping stale checks after sleep", "elapsed", elapsed.Round(time.Second).String())
		return
	}

	if s.debug {
		logging.DebugLog("running minute checks", "elapsed", elapsed.Round(time.Second).String())
	}

	ctx := logging.NewRequestContext(s.ctx)
	if s.eventReminders != nil {
		s.eventReminders.Check(ctx)
	}
	if s.taskReminders != nil {
		s.taskReminders.Check(ctx)
	}
	if s.agenda != nil {
		s.agenda.Check(ctx)
	}
}

// runSyncChecks syncs every due calendar.
func (s *Scheduler) runSyncChecks() {
	if s.syncRunner == nil {
		return
	}
	s.syncRunner.Run(logging.NewRequestContext(s.ctx))
}

// AddJob adds a custom job to the scheduler.
func (s *Scheduler) AddJob(spec string, job func()) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, job)
}

// RemoveJob removes a job from the scheduler.
func (s *Scheduler) RemoveJob(id cron.EntryID) {
	s.cron.Remove(id)
}

// Entries returns all scheduled entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// NextRun returns the next scheduled run time for any job.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// send delivers n and logs per-webhook failures in debug mode. It returns
// the number of webhooks that accepted the notification.
func send(ctx context.Context, notifier Notifier, n *model.Notification, debug bool) int {
	delivered := 0
	for _, r := range notifier.SendNotification(ctx, n) {
		if r.Success {
			delivered++
		}
		if debug {
			logging.DebugLog("notification result",
				logging.KeyWebhook, r.WebhookName,
				"type", n.Type,
				"success", r.Success,
				logging.KeyError, r.Error)
		}
	}
	return delivered
}
