package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SyncedEvent is one occurrence of a calendar event, materialised from a feed.
// Recurring events produce one SyncedEvent per expanded occurrence.
type SyncedEvent struct {
	Key           string    `json:"key"`
	SyncID        string    `json:"sync_id"`
	UID           string    `json:"uid"`
	OccurrenceUID string    `json:"occurrence_uid"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location,omitempty"`
	URL           string    `json:"url,omitempty"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	AllDay        bool      `json:"all_day,omitempty"`
	Organizer     string    `json:"organizer,omitempty"`
	Attendees     []string  `json:"attendees,omitempty"`
	Recurring     bool      `json:"recurring,omitempty"`
	Status        string    `json:"status,omitempty"`
	ProjectSID    string    `json:"project_sid,omitempty"`
	Hash          string    `json:"hash"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (e *SyncedEvent) SetKey(key string) {
	e.Key = key
}

func (e *SyncedEvent) GetKey() string {
	return e.Key
}

// GenerateEventKey returns "event:<syncID>:<occurrenceUID>".
func GenerateEventKey(syncID, occurrenceUID string) string {
	return fmt.Sprintf("%s:%s:%s", PrefixEvent, syncID, occurrenceUID)
}

// EventPrefixForSync returns the key prefix shared by all events of a sync.
func EventPrefixForSync(syncID string) string {
	return fmt.Sprintf("%s:%s:", PrefixEvent, syncID)
}

// ShortID returns a short display ID derived from the content-independent key.
func (e *SyncedEvent) ShortID() string {
	sum := sha256.Sum256([]byte(e.Key))
	return hex.EncodeToString(sum[:3])
}

// ComputeHash fingerprints the fields a feed can change. Two events with the
// same hash need no write.
func (e *SyncedEvent) ComputeHash() string {
	h := sha256.New()
	for _, part := range []string{
		e.Title,
		e.Description,
		e.Location,
		e.URL,
		e.Start.UTC().Format(time.RFC3339),
		e.End.UTC().Format(time.RFC3339),
		fmt.Sprint(e.AllDay),
		e.Organizer,
		strings.Join(e.Attendees, ","),
		e.Status,
		e.ProjectSID,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Duration returns End - Start.
func (e *SyncedEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// IsCancelled reports whether the feed marked the event cancelled.
func (e *SyncedEvent) IsCancelled() bool {
	return strings.EqualFold(e.Status, "CANCELLED")
}

// StartsWithin reports whether the event starts in (now, now+d].
func (e *SyncedEvent) StartsWithin(now time.Time, d time.Duration) bool {
	until := e.Start.Sub(now)
	return until > 0 && until <= d
}

// Overlaps reports whether the event intersects [from, to).
func (e *SyncedEvent) Overlaps(from, to time.Time) bool {
	end := e.End
	if !end.After(e.Start) {
		end = e.Start.Add(time.Nanosecond)
	}
	return e.Start.Before(to) && end.After(from)
}
