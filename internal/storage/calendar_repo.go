package storage

import (
	"sort"
	"time"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
)

// CalendarSyncRepo provides operations for CalendarSync entities.
type CalendarSyncRepo struct {
	db *DB
}

// NewCalendarSyncRepo creates a new calendar sync repository.
func NewCalendarSyncRepo(db *DB) *CalendarSyncRepo {
	return &CalendarSyncRepo{db: db}
}

// Create stores a new calendar sync.
func (r *CalendarSyncRepo) Create(cal *model.CalendarSync) error {
	cal.Key = model.GenerateCalendarKey(cal.ID)
	if cal.CreatedAt.IsZero() {
		cal.CreatedAt = time.Now()
	}
	return r.db.Set(cal)
}

// Get retrieves a calendar sync by full ID.
func (r *CalendarSyncRepo) Get(id string) (*model.CalendarSync, error) {
	cal := &model.CalendarSync{}
	if err := r.db.Get(model.GenerateCalendarKey(id), cal); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, errors.ErrCalendarNotFound
		}
		return nil, err
	}
	return cal, nil
}

// Find resolves a full ID, an ID prefix or an exact name.
func (r *CalendarSyncRepo) Find(ref string) (*model.CalendarSync, error) {
	if cal, err := r.Get(ref); err == nil {
		return cal, nil
	}
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, cal := range all {
		if cal.Name == ref {
			return cal, nil
		}
	}
	return matchShortID(all, ref, func(c *model.CalendarSync) string { return c.ID }, errors.ErrCalendarNotFound)
}

// List retrieves all calendar syncs ordered by name.
func (r *CalendarSyncRepo) List() ([]*model.CalendarSync, error) {
	cals, err := GetAllByPrefix(r.db, model.PrefixCalendar+":", func() *model.CalendarSync {
		return &model.CalendarSync{}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(cals, func(i, j int) bool { return cals[i].Name < cals[j].Name })
	return cals, nil
}

// ListEnabled retrieves enabled calendar syncs.
func (r *CalendarSyncRepo) ListEnabled() ([]*model.CalendarSync, error) {
	return r.filter(func(c *model.CalendarSync) bool { return c.Enabled })
}

// ListDue retrieves calendars whose interval has elapsed at now.
func (r *CalendarSyncRepo) ListDue(now time.Time) ([]*model.CalendarSync, error) {
	return r.filter(func(c *model.CalendarSync) bool { return c.IsDue(now) })
}

// ListByProject retrieves calendars linked to a project.
func (r *CalendarSyncRepo) ListByProject(projectSID string) ([]*model.CalendarSync, error) {
	return r.filter(func(c *model.CalendarSync) bool { return c.ProjectSID == projectSID })
}

func (r *CalendarSyncRepo) filter(keep func(*model.CalendarSync) bool) ([]*model.CalendarSync, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var out []*model.CalendarSync
	for _, c := range all {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Update updates an existing calendar sync.
func (r *CalendarSyncRepo) Update(cal *model.CalendarSync) error {
	return r.db.Set(cal)
}

// SetEnabled toggles a calendar sync.
func (r *CalendarSyncRepo) SetEnabled(id string, enabled bool) (*model.CalendarSync, error) {
	cal, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	cal.Enabled = enabled
	return cal, r.db.Set(cal)
}

// Delete removes a calendar sync. Its events are removed by SyncedEventRepo.DeleteBySync.
func (r *CalendarSyncRepo) Delete(id string) error {
	return r.db.Delete(model.GenerateCalendarKey(id))
}
