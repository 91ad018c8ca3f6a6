// Package calsync keeps local copies of subscribed iCalendar feeds. A sync
// run fetches the feed, expands recurring events into occurrences and applies
// the difference to the store in one batch.
package calsync

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/ics"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/storage"
	"github.com/manav03panchal/projecthub/internal/validate"
)

// Mirror receives the events of every successful sync. Implementations push
// them to an external store.
type Mirror interface {
	UpsertEvents(ctx context.Context, syncID string, events []*model.SyncedEvent) error
	DeleteMissing(ctx context.Context, syncID string, keep []string) error
}

// Result summarises one sync run.
type Result struct {
	SyncID    string        `json:"sync_id"`
	Name      string        `json:"name"`
	Unchanged bool          `json:"unchanged,omitempty"`
	Added     int           `json:"added"`
	Updated   int           `json:"updated"`
	Removed   int           `json:"removed"`
	Kept      int           `json:"kept"`
	Total     int           `json:"total"`
	Warnings  []string      `json:"warnings,omitempty"`
	Duration  time.Duration `json:"duration"`
	MirrorErr string        `json:"mirror_error,omitempty"`
	Err       error         `json:"-"`
}

// Changed reports whether the run wrote anything.
func (r *Result) Changed() bool {
	return r.Added+r.Updated+r.Removed > 0
}

// Service runs calendar syncs against the local store.
type Service struct {
	syncs    *storage.CalendarSyncRepo
	events   *storage.SyncedEventRepo
	activity *storage.ActivityRepo
	projects *storage.ProjectRepo
	fetcher  *ics.Fetcher
	locker   Locker
	mirror   Mirror
	cfg      config.SyncConfig
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocker replaces the in-process locker.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithMirror enables pushing synced events to m.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithFetcher replaces the default feed fetcher.
func WithFetcher(f *ics.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConfig replaces the sync settings taken from config.Global.
func WithConfig(cfg config.SyncConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

// NewService creates a sync service on db.
func NewService(db *storage.DB, opts ...Option) *Service {
	s := &Service{
		syncs:    storage.NewCalendarSyncRepo(db),
		events:   storage.NewSyncedEventRepo(db),
		activity: storage.NewActivityRepo(db),
		projects: storage.NewProjectRepo(db),
		locker:   NewLocalLocker(),
		cfg:      config.Global.Sync,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = ics.NewFetcher()
	}
	return s
}

// Add registers a feed. interval <= 0 uses the configured default.
func (s *Service) Add(ctx context.Context, name, url, projectSID string, interval time.Duration) (*model.CalendarSync, error) {
	name = validate.SanitizeName(name)
	if err := validate.Name("calendar", name); err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	if err := validate.FeedURL(url); err != nil {
		return nil, err
	}
	if projectSID != "" {
		exists, err := s.projects.Exists(projectSID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.ErrProjectNotFound
		}
	}
	if interval <= 0 {
		interval = s.cfg.DefaultInterval
	}

	cal := model.NewCalendarSync(name, url, interval)
	cal.ProjectSID = projectSID
	cal.CreatedAt = s.now()
	if err := s.syncs.Create(cal); err != nil {
		return nil, err
	}

	s.record(model.NewActivity(model.ActionCalendarAdded, "calendar", cal.Key,
		fmt.Sprintf("Added calendar %q", cal.Name)))
	logging.FromContext(ctx).Info("calendar added",
		logging.KeySyncID, cal.ID,
		logging.KeyCalendar, cal.Name,
		logging.KeyURL, cal.URL)
	return cal, nil
}

// Remove deletes a calendar sync and its events.
func (s *Service) Remove(ctx context.Context, id string) (int, error) {
	cal, err := s.syncs.Get(id)
	if err != nil {
		return 0, err
	}
	n, err := s.events.DeleteBySync(cal.ID)
	if err != nil {
		return 0, err
	}
	if err := s.syncs.Delete(cal.ID); err != nil {
		return n, err
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteMissing(ctx, cal.ID, nil); err != nil {
			logging.FromContext(ctx).Warn("mirror cleanup failed", logging.KeySyncID, cal.ID, logging.KeyError, err)
		}
	}
	s.record(model.NewActivity(model.ActionCalendarRemoved, "calendar", cal.Key,
		fmt.Sprintf("Removed calendar %q (%d events)", cal.Name, n)))
	return n, nil
}

// Sync fetches and applies one calendar. A feed answering 304 Not Modified
// is recorded as a successful, unchanged run.
func (s *Service) Sync(ctx context.Context, id string) (*Result, error) {
	cal, err := s.syncs.Get(id)
	if err != nil {
		return nil, err
	}
	if !cal.Enabled {
		return nil, errors.ErrCalendarDisabled
	}

	release, err := s.locker.Acquire(ctx, cal.ID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, cancel := s.withinLock(ctx)
	defer cancel()

	start := s.now()
	log := logging.FromContext(ctx).With(logging.KeySyncID, cal.ID, logging.KeyCalendar, cal.Name)
	log.Debug("sync started", logging.KeyURL, cal.URL)

	fetched, err := s.fetcher.Fetch(ctx, cal.URL, cal.ETag)
	if err != nil {
		return s.fail(ctx, cal, start, err)
	}

	if fetched.NotModified {
		cal.RecordSuccess(s.now(), fetched.ETag, cal.EventCount)
		if err := s.syncs.Update(cal); err != nil {
			return nil, err
		}
		log.Debug("feed not modified")
		return &Result{
			SyncID:    cal.ID,
			Name:      cal.Name,
			Unchanged: true,
			Kept:      cal.EventCount,
			Total:     cal.EventCount,
			Duration:  s.now().Sub(start),
		}, nil
	}

	return s.apply(ctx, cal, start, fetched.Body, fetched.ETag)
}

// Import applies a local .ics file to a calendar sync. The stored ETag is
// cleared so the next network sync downloads the feed in full.
func (s *Service) Import(ctx context.Context, id string, r io.Reader) (*Result, error) {
	cal, err := s.syncs.Get(id)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, cal.ID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, cancel := s.withinLock(ctx)
	defer cancel()

	start := s.now()
	limit := s.cfg.MaxFeedBytes
	if limit <= 0 {
		limit = ics.DefaultMaxBodyBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return s.fail(ctx, cal, start, errors.Wrap(err, "read import"))
	}
	if int64(len(data)) > limit {
		return s.fail(ctx, cal, start, fmt.Errorf("import exceeds %d bytes", limit))
	}
	return s.apply(ctx, cal, start, data, "")
}

func (s *Service) apply(ctx context.Context, cal *model.CalendarSync, start time.Time, body []byte, etag string) (*Result, error) {
	log := logging.FromContext(ctx).With(logging.KeySyncID, cal.ID, logging.KeyCalendar, cal.Name)

	parsed, err := ics.ParseString(string(body))
	if err != nil {
		return s.fail(ctx, cal, start, err)
	}
	for _, w := range parsed.Warnings {
		log.Debug("feed warning", "warning", w)
	}

	now := s.now()
	occurrences := ics.ExpandCalendar(parsed, ics.ExpandOptions{
		From:           now.Add(-s.cfg.PastWindow),
		Horizon:        now.AddDate(0, s.cfg.HorizonMonths, 0),
		MaxOccurrences: s.cfg.MaxOccurrences,
	})

	desired := make([]*model.SyncedEvent, 0, len(occurrences))
	for _, occ := range occurrences {
		desired = append(desired, toSyncedEvent(cal, occ, now))
	}

	existing, err := s.events.ListBySync(cal.ID)
	if err != nil {
		return s.fail(ctx, cal, start, err)
	}

	res := &Result{SyncID: cal.ID, Name: cal.Name, Total: len(desired), Warnings: parsed.Warnings}
	upserts, deletes := diff(existing, desired, res)

	if err := s.events.ApplyDiff(upserts, deletes); err != nil {
		return s.fail(ctx, cal, start, err)
	}

	if s.mirror != nil {
		if err := s.pushMirror(ctx, cal.ID, desired); err != nil {
			res.MirrorErr = err.Error()
			log.Warn("mirror update failed", logging.KeyError, err)
		}
	}

	cal.RecordSuccess(now, etag, len(desired))
	if err := s.syncs.Update(cal); err != nil {
		return nil, err
	}

	res.Duration = s.now().Sub(start)
	act := model.NewActivity(model.ActionCalendarSynced, "calendar", cal.Key,
		fmt.Sprintf("Synced %q: %d added, %d updated, %d removed", cal.Name, res.Added, res.Updated, res.Removed)).
		WithMeta("added", strconv.Itoa(res.Added)).
		WithMeta("updated", strconv.Itoa(res.Updated)).
		WithMeta("removed", strconv.Itoa(res.Removed)).
		WithMeta("total", strconv.Itoa(res.Total))
	if res.MirrorErr != "" {
		act.WithMeta("mirror_error", res.MirrorErr)
	}
	s.record(act)

	log.Info("sync finished",
		"added", res.Added,
		"updated", res.Updated,
		"removed", res.Removed,
		logging.KeyCount, res.Total,
		logging.KeyDuration, res.Duration.Milliseconds())
	return res, nil
}

// diff compares stored and fetched events by key. Events whose hash is
// unchanged are not rewritten.
func diff(existing, desired []*model.SyncedEvent, res *Result) ([]*model.SyncedEvent, []string) {
	stored := make(map[string]*model.SyncedEvent, len(existing))
	for _, ev := range existing {
		stored[ev.Key] = ev
	}

	var upserts []*model.SyncedEvent
	seen := make(map[string]bool, len(desired))
	for _, ev := range desired {
		seen[ev.Key] = true
		old, ok := stored[ev.Key]
		switch {
		case !ok:
			res.Added++
			upserts = append(upserts, ev)
		case old.Hash != ev.Hash:
			res.Updated++
			upserts = append(upserts, ev)
		default:
			res.Kept++
		}
	}

	var deletes []string
	for _, ev := range existing {
		if !seen[ev.Key] {
			deletes = append(deletes, ev.Key)
		}
	}
	res.Removed = len(deletes)
	return upserts, deletes
}

func (s *Service) pushMirror(ctx context.Context, syncID string, events []*model.SyncedEvent) error {
	if err := s.mirror.UpsertEvents(ctx, syncID, events); err != nil {
		return err
	}
	keep := make([]string, len(events))
	for i, ev := range events {
		keep[i] = ev.OccurrenceUID
	}
	return s.mirror.DeleteMissing(ctx, syncID, keep)
}

// withinLock bounds a locked run to nine tenths of the lock TTL, so the run
// ends and releases before a Redis lock can expire under it.
func (s *Service) withinLock(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.LockTTL <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.LockTTL*9/10)
}

// fail records the failure on the calendar and classifies err. Retryable
// fetch failures become RecoverableError, everything else SystemError.
func (s *Service) fail(ctx context.Context, cal *model.CalendarSync, start time.Time, err error) (*Result, error) {
	log := logging.FromContext(ctx).With(logging.KeySyncID, cal.ID, logging.KeyCalendar, cal.Name)

	cal.RecordFailure(s.now(), err)
	cal.LastError = logging.MaskString(cal.LastError)
	if uerr := s.syncs.Update(cal); uerr != nil {
		log.Error("failed to record sync failure", logging.KeyError, uerr)
	}
	s.record(model.NewActivity(model.ActionSyncFailed, "calendar", cal.Key,
		fmt.Sprintf("Sync of %q failed: %s", cal.Name, cal.LastError)))
	log.Warn("sync failed", logging.KeyError, err, logging.KeyDuration, s.now().Sub(start).Milliseconds())

	msg := fmt.Sprintf("sync %q failed", cal.Name)
	var fe *ics.FetchError
	if errors.As(err, &fe) && fe.Retryable() {
		return nil, errors.NewRecoverableError(msg, err, config.Global.HTTP.MaxRetries)
	}
	return nil, errors.NewSystemErrorWithOp("calendar sync", msg, err)
}

func (s *Service) record(a *model.ActivityLog) {
	if err := s.activity.Record(a); err != nil {
		logging.Warn("failed to record activity", "action", a.Action, logging.KeyError, err)
	}
}

// SyncDue syncs every calendar whose interval has elapsed, at most
// MaxConcurrent at a time. A failing calendar never stops the others; its
// Result carries the error.
func (s *Service) SyncDue(ctx context.Context) ([]*Result, error) {
	due, err := s.syncs.ListDue(s.now())
	if err != nil {
		return nil, err
	}
	return s.syncAll(ctx, due), nil
}

// SyncAll syncs every enabled calendar regardless of interval.
func (s *Service) SyncAll(ctx context.Context) ([]*Result, error) {
	enabled, err := s.syncs.ListEnabled()
	if err != nil {
		return nil, err
	}
	return s.syncAll(ctx, enabled), nil
}

func (s *Service) syncAll(ctx context.Context, cals []*model.CalendarSync) []*Result {
	results := make([]*Result, len(cals))
	limit := s.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, cal := range cals {
		g.Go(func() error {
			res, err := s.Sync(ctx, cal.ID)
			if res == nil {
				res = &Result{SyncID: cal.ID, Name: cal.Name}
			}
			res.Err = err
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// toSyncedEvent converts an occurrence into the stored row. Feed text is
// stripped of control characters before storage.
func toSyncedEvent(cal *model.CalendarSync, occ ics.Occurrence, now time.Time) *model.SyncedEvent {
	ev := &model.SyncedEvent{
		Key:           model.GenerateEventKey(cal.ID, occ.OccurrenceUID),
		SyncID:        cal.ID,
		UID:           occ.UID,
		OccurrenceUID: occ.OccurrenceUID,
		Title:         validate.StripControlChars(occ.Summary),
		Description:   validate.StripControlChars(occ.Description),
		Location:      validate.StripControlChars(occ.Location),
		URL:           occ.URL,
		Start:         occ.Start.UTC(),
		End:           occ.End.UTC(),
		AllDay:        occ.AllDay,
		Recurring:     occ.Recurring,
		Status:        occ.Status,
		ProjectSID:    cal.ProjectSID,
		UpdatedAt:     now,
	}
	if ev.Title == "" {
		ev.Title = "(untitled)"
	}
	if occ.Organizer != nil {
		ev.Organizer = occ.Organizer.Display()
	}
	for _, a := range occ.Attendees {
		ev.Attendees = append(ev.Attendees, a.Display())
	}
	ev.Hash = ev.ComputeHash()
	return ev
}
