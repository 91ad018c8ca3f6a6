package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sync statuses recorded after each run.
const (
	SyncStatusNever = "never"
	SyncStatusOK    = "ok"
	SyncStatusError = "error"
)

// CalendarSync is an external iCalendar feed the daemon keeps in sync.
type CalendarSync struct {
	Key        string        `json:"key"`
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	ProjectSID string        `json:"project_sid,omitempty"`
	OwnerKey   string        `json:"owner_key,omitempty"`
	Enabled    bool          `json:"enabled"`
	Interval   time.Duration `json:"interval"`
	LastSyncAt time.Time     `json:"last_sync_at,omitempty"`
	LastStatus string        `json:"last_status"`
	LastError  string        `json:"last_error,omitempty"`
	ETag       string        `json:"etag,omitempty"`
	EventCount int           `json:"event_count"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (c *CalendarSync) SetKey(key string) {
	c.Key = key
}

func (c *CalendarSync) GetKey() string {
	return c.Key
}

// GenerateCalendarKey returns "calsync:<id>".
func GenerateCalendarKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixCalendar, id)
}

// NewCalendarSync creates an enabled, never-synced calendar.
func NewCalendarSync(name, url string, interval time.Duration) *CalendarSync {
	id := uuid.New().String()
	return &CalendarSync{
		Key:        GenerateCalendarKey(id),
		ID:         id,
		Name:       name,
		URL:        url,
		Enabled:    true,
		Interval:   interval,
		LastStatus: SyncStatusNever,
		CreatedAt:  time.Now(),
	}
}

// ShortID returns the first 6 characters of the ID for display.
func (c *CalendarSync) ShortID() string {
	return shortID(c.ID)
}

// IsDue reports whether the calendar should be synced at now.
func (c *CalendarSync) IsDue(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	if c.LastSyncAt.IsZero() {
		return true
	}
	return now.Sub(c.LastSyncAt) >= c.Interval
}

// NextSyncAt returns when the calendar next becomes due.
func (c *CalendarSync) NextSyncAt() time.Time {
	if c.LastSyncAt.IsZero() {
		return time.Time{}
	}
	return c.LastSyncAt.Add(c.Interval)
}

// RecordSuccess marks a successful run.
func (c *CalendarSync) RecordSuccess(at time.Time, etag string, eventCount int) {
	c.LastSyncAt = at
	c.LastStatus = SyncStatusOK
	c.LastError = ""
	c.ETag = etag
	c.EventCount = eventCount
}

// RecordFailure marks a failed run. LastSyncAt advances so a broken feed
// waits a full interval before the next attempt.
func (c *CalendarSync) RecordFailure(at time.Time, err error) {
	c.LastSyncAt = at
	c.LastStatus = SyncStatusError
	if err != nil {
		c.LastError = err.Error()
	}
}
