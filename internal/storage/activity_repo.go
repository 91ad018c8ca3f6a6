package storage

import (
	"slices"

	"github.com/manav03panchal/projecthub/internal/model"
)

// ActivityRepo records and lists ActivityLog entries.
type ActivityRepo struct {
	db *DB
}

// NewActivityRepo creates a new activity repository.
func NewActivityRepo(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Record stores an activity entry.
func (r *ActivityRepo) Record(a *model.ActivityLog) error {
	if a.Key == "" {
		a.Key = model.GenerateActivityKey(a.CreatedAt, a.ID)
	}
	return r.db.Set(a)
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (r *ActivityRepo) List(limit int) ([]*model.ActivityLog, error) {
	all, err := GetAllByPrefix(r.db, model.PrefixActivity+":", func() *model.ActivityLog {
		return &model.ActivityLog{}
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListByEntity returns entries about one entity, newest first.
func (r *ActivityRepo) ListByEntity(entityKey string, limit int) ([]*model.ActivityLog, error) {
	all, err := r.List(0)
	if err != nil {
		return nil, err
	}
	var out []*model.ActivityLog
	for _, a := range all {
		if a.EntityKey == entityKey {
			out = append(out, a)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
