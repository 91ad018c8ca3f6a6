package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Activity actions.
const (
	ActionProjectCreated  = "project.created"
	ActionProjectArchived = "project.archived"
	ActionProjectDeleted  = "project.deleted"
	ActionTaskCreated     = "task.created"
	ActionTaskMoved       = "task.moved"
	ActionTaskDeleted     = "task.deleted"
	ActionCalendarAdded   = "calendar.added"
	ActionCalendarRemoved = "calendar.removed"
	ActionCalendarSynced  = "calendar.synced"
	ActionSyncFailed      = "calendar.sync_failed"
)

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	Key        string            `json:"key"`
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityKey  string            `json:"entity_key"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (a *ActivityLog) SetKey(key string) {
	a.Key = key
}

func (a *ActivityLog) GetKey() string {
	return a.Key
}

// GenerateActivityKey embeds a zero-padded timestamp so a prefix scan returns
// entries in chronological order.
func GenerateActivityKey(at time.Time, id string) string {
	return fmt.Sprintf("%s:%020d:%s", PrefixActivity, at.UnixNano(), id)
}

// NewActivity creates an activity entry stamped at now.
func NewActivity(action, entityType, entityKey, message string) *ActivityLog {
	id := uuid.New().String()
	now := time.Now()
	return &ActivityLog{
		Key:        GenerateActivityKey(now, id),
		ID:         id,
		Action:     action,
		EntityType: entityType,
		EntityKey:  entityKey,
		Message:    message,
		CreatedAt:  now,
	}
}

// WithMeta attaches a metadata value.
func (a *ActivityLog) WithMeta(key, value string) *ActivityLog {
	if a.Metadata == nil {
		a.Metadata = make(map[string]string)
	}
	a.Metadata[key] = value
	return a
}
