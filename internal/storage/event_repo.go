package storage

import (
	"sort"
	"time"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
)

// SyncedEventRepo provides operations for SyncedEvent entities.
type SyncedEventRepo struct {
	db *DB
}

// NewSyncedEventRepo creates a new synced event repository.
func NewSyncedEventRepo(db *DB) *SyncedEventRepo {
	return &SyncedEventRepo{db: db}
}

// Get retrieves an event by full key.
func (r *SyncedEventRepo) Get(key string) (*model.SyncedEvent, error) {
	ev := &model.SyncedEvent{}
	if err := r.db.Get(key, ev); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, errors.ErrEventNotFound
		}
		return nil, err
	}
	return ev, nil
}

// GetByShortID finds the single event whose ShortID starts with prefix.
func (r *SyncedEventRepo) GetByShortID(prefix string) (*model.SyncedEvent, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	return matchShortID(all, prefix, func(e *model.SyncedEvent) string { return e.ShortID() }, errors.ErrEventNotFound)
}

// List retrieves every stored event.
func (r *SyncedEventRepo) List() ([]*model.SyncedEvent, error) {
	return GetAllByPrefix(r.db, model.PrefixEvent+":", func() *model.SyncedEvent {
		return &model.SyncedEvent{}
	})
}

// ListBySync retrieves the events of one calendar sync.
func (r *SyncedEventRepo) ListBySync(syncID string) ([]*model.SyncedEvent, error) {
	return GetAllByPrefix(r.db, model.EventPrefixForSync(syncID), func() *model.SyncedEvent {
		return &model.SyncedEvent{}
	})
}

// ListRange returns non-cancelled events overlapping [from, to), sorted by start.
// An empty syncID matches every calendar.
func (r *SyncedEventRepo) ListRange(syncID string, from, to time.Time) ([]*model.SyncedEvent, error) {
	var (
		all []*model.SyncedEvent
		err error
	)
	if syncID != "" {
		all, err = r.ListBySync(syncID)
	} else {
		all, err = r.List()
	}
	if err != nil {
		return nil, err
	}

	var out []*model.SyncedEvent
	for _, ev := range all {
		if !ev.IsCancelled() && ev.Overlaps(from, to) {
			out = append(out, ev)
		}
	}
	SortEvents(out)
	return out, nil
}

// ListUpcoming returns non-cancelled events starting in (now, now+within].
func (r *SyncedEventRepo) ListUpcoming(now time.Time, within time.Duration) ([]*model.SyncedEvent, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var out []*model.SyncedEvent
	for _, ev := range all {
		if !ev.IsCancelled() && ev.StartsWithin(now, within) {
			out = append(out, ev)
		}
	}
	SortEvents(out)
	return out, nil
}

// SortEvents orders events by start, then title.
func SortEvents(events []*model.SyncedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Title < events[j].Title
	})
}

// ApplyDiff writes upserts and removes deleteKeys in one batch.
func (r *SyncedEventRepo) ApplyDiff(upserts []*model.SyncedEvent, deleteKeys []string) error {
	return r.db.Batch(func(b *Batch) error {
		for _, ev := range upserts {
			if err := b.Set(ev); err != nil {
				return err
			}
		}
		for _, key := range deleteKeys {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update stores a single event.
func (r *SyncedEventRepo) Update(ev *model.SyncedEvent) error {
	return r.db.Set(ev)
}

// DeleteBySync removes every event of a calendar sync and returns the count.
func (r *SyncedEventRepo) DeleteBySync(syncID string) (int, error) {
	return r.db.DeleteByPrefix(model.EventPrefixForSync(syncID))
}
