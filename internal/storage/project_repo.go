package storage

import (
	"sort"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
)

// ProjectRepo provides operations for Project entities.
type ProjectRepo struct {
	db *DB
}

// NewProjectRepo creates a new project repository.
func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create stores a new project. It fails with ErrProjectExists if the SID is taken.
func (r *ProjectRepo) Create(project *model.Project) error {
	key := model.GenerateProjectKey(project.SID)
	_, created, err := r.db.GetOrCreate(key, &model.Project{}, func() model.Model {
		return project
	})
	if err != nil {
		return err
	}
	if !created {
		return errors.ErrProjectExists
	}
	return nil
}

// Get retrieves a project by SID.
func (r *ProjectRepo) Get(sid string) (*model.Project, error) {
	project := &model.Project{}
	if err := r.db.Get(model.GenerateProjectKey(sid), project); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, errors.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// GetOrCreate retrieves a project by SID, creating it if it doesn't exist.
func (r *ProjectRepo) GetOrCreate(sid, displayName string) (*model.Project, bool, error) {
	result, created, err := r.db.GetOrCreate(model.GenerateProjectKey(sid), &model.Project{}, func() model.Model {
		return model.NewProject(sid, displayName, "")
	})
	if err != nil {
		return nil, false, err
	}
	return result.(*model.Project), created, nil
}

// Update updates an existing project.
func (r *ProjectRepo) Update(project *model.Project) error {
	return r.db.Set(project)
}

// Delete removes a project by SID.
func (r *ProjectRepo) Delete(sid string) error {
	return r.db.Delete(model.GenerateProjectKey(sid))
}

// List retrieves all projects sorted by SID.
func (r *ProjectRepo) List() ([]*model.Project, error) {
	projects, err := GetAllByPrefix(r.db, model.PrefixProject+":", func() *model.Project {
		return &model.Project{}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].SID < projects[j].SID })
	return projects, nil
}

// ListActive retrieves projects that are not archived.
func (r *ProjectRepo) ListActive() ([]*model.Project, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, p := range all {
		if !p.Archived {
			active = append(active, p)
		}
	}
	return active, nil
}

// Exists checks if a project exists by SID.
func (r *ProjectRepo) Exists(sid string) (bool, error) {
	return r.db.Exists(model.GenerateProjectKey(sid))
}
