package storage

import (
	"sort"
	"strings"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
)

// TaskRepo provides operations for Task entities.
type TaskRepo struct {
	db *DB
}

// NewTaskRepo creates a new task repository.
func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// TaskFilter narrows ListFiltered. Zero values match everything except done
// tasks, which need IncludeDone or an explicit done Status.
type TaskFilter struct {
	ProjectSID  string
	Status      model.TaskStatus
	Assignee    string
	IncludeDone bool
}

// Create stores a new task.
func (r *TaskRepo) Create(task *model.Task) error {
	task.Key = model.GenerateTaskKey(task.ProjectSID, task.ID)
	return r.db.Set(task)
}

// Get retrieves a task by project SID and full ID.
func (r *TaskRepo) Get(projectSID, id string) (*model.Task, error) {
	task := &model.Task{}
	if err := r.db.Get(model.GenerateTaskKey(projectSID, id), task); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, errors.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// GetByShortID finds the single task whose ID starts with prefix.
func (r *TaskRepo) GetByShortID(prefix string) (*model.Task, error) {
	tasks, err := r.List()
	if err != nil {
		return nil, err
	}
	return matchShortID(tasks, prefix, func(t *model.Task) string { return t.ID }, errors.ErrTaskNotFound)
}

// List retrieves all tasks.
func (r *TaskRepo) List() ([]*model.Task, error) {
	return GetAllByPrefix(r.db, model.PrefixTask+":", func() *model.Task {
		return &model.Task{}
	})
}

// ListByProject retrieves all tasks for a project.
func (r *TaskRepo) ListByProject(projectSID string) ([]*model.Task, error) {
	return GetAllByPrefix(r.db, model.PrefixTask+":"+projectSID+":", func() *model.Task {
		return &model.Task{}
	})
}

// ListFiltered returns matching tasks ordered by due date (undated last),
// then priority, then creation time.
func (r *TaskRepo) ListFiltered(f TaskFilter) ([]*model.Task, error) {
	var (
		tasks []*model.Task
		err   error
	)
	if f.ProjectSID != "" {
		tasks, err = r.ListByProject(f.ProjectSID)
	} else {
		tasks, err = r.List()
	}
	if err != nil {
		return nil, err
	}

	out := tasks[:0]
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Status == "" && !f.IncludeDone && t.IsDone() {
			continue
		}
		if f.Assignee != "" && !strings.EqualFold(t.Assignee, f.Assignee) {
			continue
		}
		out = append(out, t)
	}
	SortTasks(out)
	return out, nil
}

// SortTasks orders tasks by due date (undated last), priority, then creation.
func SortTasks(tasks []*model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.Priority.Rank() != b.Priority.Rank():
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// Update updates an existing task.
func (r *TaskRepo) Update(task *model.Task) error {
	return r.db.Set(task)
}

// Delete removes a task.
func (r *TaskRepo) Delete(projectSID, id string) error {
	return r.db.Delete(model.GenerateTaskKey(projectSID, id))
}

// DeleteByProject removes every task of a project and returns the count.
func (r *TaskRepo) DeleteByProject(projectSID string) (int, error) {
	return r.db.DeleteByPrefix(model.PrefixTask + ":" + projectSID + ":")
}

// matchShortID returns the single item whose ID has the given prefix.
func matchShortID[T any](items []T, prefix string, id func(T) string, notFound error) (T, error) {
	var (
		zero    T
		matches []T
	)
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return zero, notFound
	}
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(id(item)), prefix) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return zero, notFound
	case 1:
		return matches[0], nil
	}
	return zero, &AmbiguousMatchError{Prefix: prefix, Matches: len(matches)}
}

// AmbiguousMatchError is returned when more than one record matches a short ID.
type AmbiguousMatchError struct {
	Prefix  string
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	return "multiple records match '" + e.Prefix + "'"
}

func (e *AmbiguousMatchError) Unwrap() error {
	return errors.ErrAmbiguousID
}
