package model

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// KeyNotifyConfig is the database key for notification configuration.
const KeyNotifyConfig = "config:notify"

// NotifyConfig holds notification preferences.
type NotifyConfig struct {
	Key string `json:"key"`

	// EventLeadTimes are the offsets before an event start at which a reminder fires.
	EventLeadTimes []string `json:"event_lead_times"`

	// TaskLeadTimes are the offsets before a task due date at which a reminder fires.
	TaskLeadTimes []string `json:"task_lead_times"`

	// DailyAgendaAt is the local "HH:MM" time of the daily agenda.
	DailyAgendaAt string `json:"daily_agenda_at"`

	// Enabled toggles notification types; absent types are enabled.
	Enabled map[string]bool `json:"enabled"`
}

func (c *NotifyConfig) SetKey(key string) {
	c.Key = key
}

func (c *NotifyConfig) GetKey() string {
	return c.Key
}

// DefaultNotifyConfig returns the default notification configuration.
func DefaultNotifyConfig() *NotifyConfig {
	return &NotifyConfig{
		Key:            KeyNotifyConfig,
		EventLeadTimes: []string{"15m"},
		TaskLeadTimes:  []string{"24h", "1h"},
		DailyAgendaAt:  "08:00",
		Enabled: map[string]bool{
			string(NotifyEventReminder): true,
			string(NotifyTaskDue):       true,
			string(NotifyDailyAgenda):   true,
			string(NotifySyncFailed):    true,
		},
	}
}

// IsTypeEnabled checks if a notification type is enabled.
func (c *NotifyConfig) IsTypeEnabled(notifyType NotificationType) bool {
	enabled, exists := c.Enabled[string(notifyType)]
	return !exists || enabled
}

// SetTypeEnabled sets whether a notification type is enabled.
func (c *NotifyConfig) SetTypeEnabled(notifyType NotificationType, enabled bool) {
	if c.Enabled == nil {
		c.Enabled = make(map[string]bool)
	}
	c.Enabled[string(notifyType)] = enabled
}

// Clone creates a deep copy of the config.
func (c *NotifyConfig) Clone() *NotifyConfig {
	return &NotifyConfig{
		Key:            c.Key,
		EventLeadTimes: slices.Clone(c.EventLeadTimes),
		TaskLeadTimes:  slices.Clone(c.TaskLeadTimes),
		DailyAgendaAt:  c.DailyAgendaAt,
		Enabled:        maps.Clone(c.Enabled),
	}
}

// Validate checks lead times (1m to 7d, Go duration syntax) and the agenda time.
func (c *NotifyConfig) Validate() error {
	check := func(field string, values []string) error {
		for _, v := range values {
			d, err := time.ParseDuration(v)
			if err != nil {
				return &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a duration", v)}
			}
			if d < time.Minute || d > 7*24*time.Hour {
				return &ValidationError{Field: field, Message: "each lead time must be between 1m and 168h"}
			}
		}
		return nil
	}
	if err := check("event_lead_times", c.EventLeadTimes); err != nil {
		return err
	}
	if err := check("task_lead_times", c.TaskLeadTimes); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.DailyAgendaAt); err != nil {
		return &ValidationError{Field: "daily_agenda_at", Message: "must be HH:MM (24-hour)"}
	}
	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
