// Package model defines the domain models for ProjectHub.
package model

// Model is the interface that all database models must implement.
type Model interface {
	// SetKey sets the database key for this model.
	SetKey(key string)
	// GetKey returns the database key for this model.
	GetKey() string
}

// Key prefixes. Every key is "<prefix>:<id>[:<id>]".
const (
	PrefixProject  = "project"
	PrefixTask     = "task"
	PrefixCalendar = "calsync"
	PrefixEvent    = "event"
	PrefixActivity = "activity"
	PrefixWebhook  = "webhook"
	KeyConfig      = "config"
)

// shortID returns the first six characters of an ID for display.
func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
