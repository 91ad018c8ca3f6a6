package model

import (
	"time"
)

// NotificationType defines the type of notification.
type NotificationType string

const (
	NotifyEventReminder NotificationType = "event_reminder"
	NotifyTaskDue       NotificationType = "task_due"
	NotifyDailyAgenda   NotificationType = "daily_agenda"
	NotifySyncFailed    NotificationType = "sync_failed"
	NotifyTest          NotificationType = "test"
)

// NotificationTypes lists every type that can be toggled in NotifyConfig.
func NotificationTypes() []NotificationType {
	return []NotificationType{NotifyEventReminder, NotifyTaskDue, NotifyDailyAgenda, NotifySyncFailed}
}

// Notification represents a notification to be sent.
type Notification struct {
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Color     int               `json:"color,omitempty"`
}

// NewNotification creates a notification with the type's default color.
func NewNotification(t NotificationType, title, message string) *Notification {
	return &Notification{
		Type:      t,
		Title:     title,
		Message:   message,
		Fields:    make(map[string]string),
		Timestamp: time.Now(),
		Color:     DefaultColorForType(t),
	}
}

// WithField adds a field to the notification.
func (n *Notification) WithField(key, value string) *Notification {
	if n.Fields == nil {
		n.Fields = make(map[string]string)
	}
	n.Fields[key] = value
	return n
}

// WithColor sets the embed color.
func (n *Notification) WithColor(color int) *Notification {
	n.Color = color
	return n
}

// Notification colors (Discord-compatible hex values).
const (
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorInfo    = 0x5865F2
	ColorError   = 0xED4245
	ColorPrimary = 0x3498DB
)

// DefaultColorForType returns the default color for a notification type.
func DefaultColorForType(t NotificationType) int {
	switch t {
	case NotifyEventReminder:
		return ColorPrimary
	case NotifyTaskDue:
		return ColorWarning
	case NotifyDailyAgenda:
		return ColorInfo
	case NotifySyncFailed:
		return ColorError
	case NotifyTest:
		return ColorSuccess
	default:
		return ColorInfo
	}
}

// Icon returns an emoji shortcode for the notification type.
func (n *Notification) Icon() string {
	switch n.Type {
	case NotifyEventReminder:
		return "calendar"
	case NotifyTaskDue:
		return "alarm_clock"
	case NotifyDailyAgenda:
		return "sunrise"
	case NotifySyncFailed:
		return "warning"
	case NotifyTest:
		return "test_tube"
	default:
		return "bell"
	}
}

// TypeLabel returns a human-readable label for the notification type.
func (n *Notification) TypeLabel() string {
	switch n.Type {
	case NotifyEventReminder:
		return "Upcoming Event"
	case NotifyTaskDue:
		return "Task Due"
	case NotifyDailyAgenda:
		return "Daily Agenda"
	case NotifySyncFailed:
		return "Calendar Sync Failed"
	case NotifyTest:
		return "Test Notification"
	default:
		return "Notification"
	}
}
