package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the kanban column a task sits in.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists the kanban columns in board order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{StatusTodo, StatusInProgress, StatusReview, StatusDone}
}

// ParseTaskStatus accepts a status name case-insensitively, with "-" or " "
// in place of "_".
func ParseTaskStatus(s string) (TaskStatus, bool) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range TaskStatuses() {
		if string(st) == normalized {
			return st, true
		}
	}
	return "", false
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority accepts a priority name case-insensitively. Empty means medium.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return PriorityMedium, true
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityUrgent:
		return PriorityUrgent, true
	}
	return "", false
}

// Rank orders priorities from urgent (0) to low (3).
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Task is a unit of work on a project board.
type Task struct {
	Key            string     `json:"key"`
	ID             string     `json:"id"`
	ProjectSID     string     `json:"project_sid"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Assignee       string     `json:"assignee,omitempty"`
	SourceEventKey string     `json:"source_event_key,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (t *Task) SetKey(key string) {
	t.Key = key
}

func (t *Task) GetKey() string {
	return t.Key
}

// GenerateTaskKey returns "task:<project>:<id>".
func GenerateTaskKey(projectSID, id string) string {
	return fmt.Sprintf("%s:%s:%s", PrefixTask, projectSID, id)
}

// NewTask creates a todo task with a fresh ID.
func NewTask(projectSID, title string) *Task {
	id := uuid.New().String()
	now := time.Now()
	return &Task{
		Key:        GenerateTaskKey(projectSID, id),
		ID:         id,
		ProjectSID: projectSID,
		Title:      title,
		Status:     StatusTodo,
		Priority:   PriorityMedium,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ShortID returns the first 6 characters of the ID for display.
func (t *Task) ShortID() string {
	return shortID(t.ID)
}

// IsDone reports whether the task is in the done column.
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// SetStatus moves the task and maintains CompletedAt.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	t.Status = status
	t.UpdatedAt = now
	if status == StatusDone {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	} else {
		t.CompletedAt = nil
	}
}

// IsOverdue reports whether an open task is past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsDone() && t.DueDate != nil && now.After(*t.DueDate)
}

// IsDueWithin reports whether an open task falls due within d of now.
func (t *Task) IsDueWithin(now time.Time, d time.Duration) bool {
	if t.IsDone() || t.DueDate == nil {
		return false
	}
	until := t.DueDate.Sub(now)
	return until >= 0 && until <= d
}
