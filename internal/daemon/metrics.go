package daemon

import (
	"encoding/json"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/projecthub/internal/calsync"
	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/notify"
)

// Metrics tracks daemon operational metrics.
type Metrics struct {
	// Counters
	syncsTotal          atomic.Int64
	syncsFailed         atomic.Int64
	eventsChanged       atomic.Int64
	notificationsSent   atomic.Int64
	notificationsFailed atomic.Int64
	notificationsQueued atomic.Int64
	errorsTotal         atomic.Int64

	mu                 sync.RWMutex
	webhookLatencyMs   int64
	lastSyncAt         time.Time
	lastNotificationAt time.Time
	lastError          string
	lastErrorAt        time.Time
	errorsByCategory   map[string]int64
	now                func() time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		errorsByCategory: make(map[string]int64),
		now:              time.Now,
	}
}

// MetricsSnapshot represents a point-in-time view of metrics.
type MetricsSnapshot struct {
	SyncsTotal               int64            `json:"syncs_total"`
	SyncsFailedTotal         int64            `json:"syncs_failed_total"`
	EventsChangedTotal       int64            `json:"events_changed_total"`
	NotificationsSentTotal   int64            `json:"notifications_sent_total"`
	NotificationsFailedTotal int64            `json:"notifications_failed_total"`
	NotificationsQueuedTotal int64            `json:"notifications_queued_total"`
	ErrorsTotal              int64            `json:"errors_total"`
	WebhookLatencyMs         int64            `json:"webhook_latency_ms"`
	LastSyncAt               *time.Time       `json:"last_sync_at,omitempty"`
	LastNotificationAt       *time.Time       `json:"last_notification_at,omitempty"`
	LastError                string           `json:"last_error,omitempty"`
	LastErrorAt              *time.Time       `json:"last_error_at,omitempty"`
	ErrorsByCategory         map[string]int64 `json:"errors_by_category,omitempty"`
}

// Snapshot returns a copy of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		SyncsTotal:               m.syncsTotal.Load(),
		SyncsFailedTotal:         m.syncsFailed.Load(),
		EventsChangedTotal:       m.eventsChanged.Load(),
		NotificationsSentTotal:   m.notificationsSent.Load(),
		NotificationsFailedTotal: m.notificationsFailed.Load(),
		NotificationsQueuedTotal: m.notificationsQueued.Load(),
		ErrorsTotal:              m.errorsTotal.Load(),
		WebhookLatencyMs:         m.webhookLatencyMs,
		LastError:                m.lastError,
		ErrorsByCategory:         maps.Clone(m.errorsByCategory),
	}
	snap.LastSyncAt = optionalTime(m.lastSyncAt)
	snap.LastNotificationAt = optionalTime(m.lastNotificationAt)
	snap.LastErrorAt = optionalTime(m.lastErrorAt)
	return snap
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// JSON returns metrics as JSON.
func (m *Metrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}

// RecordSync records the outcome of one calendar sync. Lock contention is
// not a failure and is ignored.
func (m *Metrics) RecordSync(res *calsync.Result) {
	if res == nil || errors.Is(res.Err, errors.ErrSyncInProgress) {
		return
	}
	m.syncsTotal.Add(1)
	m.eventsChanged.Add(int64(res.Added + res.Updated + res.Removed))

	m.mu.Lock()
	m.lastSyncAt = m.now()
	m.mu.Unlock()

	if res.Err != nil {
		m.syncsFailed.Add(1)
		m.RecordError("sync", res.Err)
	}
}

// RecordDispatch records one webhook delivery attempt.
func (m *Metrics) RecordDispatch(r notify.DispatchResult) {
	if r.Success {
		m.notificationsSent.Add(1)
		m.mu.Lock()
		m.webhookLatencyMs = r.Duration.Milliseconds()
		m.lastNotificationAt = m.now()
		m.mu.Unlock()
		return
	}

	m.notificationsFailed.Add(1)
	if r.Queued {
		m.notificationsQueued.Add(1)
	}
	if r.Error != nil {
		m.RecordError("notification", r.Error)
	}
}

// RecordError records an error under its source and its error category,
// e.g. "sync" and "recoverable".
func (m *Metrics) RecordError(source string, err error) {
	m.errorsTotal.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = err.Error()
	m.lastErrorAt = m.now()
	if source != "" {
		m.errorsByCategory[source]++
	}
	m.errorsByCategory[errors.Classify(err).String()]++
}

// SyncsTotal returns the number of completed sync runs.
func (m *Metrics) SyncsTotal() int64 {
	return m.syncsTotal.Load()
}

// NotificationsSent returns the total notifications sent.
func (m *Metrics) NotificationsSent() int64 {
	return m.notificationsSent.Load()
}

// NotificationsFailed returns the total failed notifications.
func (m *Metrics) NotificationsFailed() int64 {
	return m.notificationsFailed.Load()
}

// ErrorsTotal returns the total errors.
func (m *Metrics) ErrorsTotal() int64 {
	return m.errorsTotal.Load()
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.syncsTotal.Store(0)
	m.syncsFailed.Store(0)
	m.eventsChanged.Store(0)
	m.notificationsSent.Store(0)
	m.notificationsFailed.Store(0)
	m.notificationsQueued.Store(0)
	m.errorsTotal.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.webhookLatencyMs = 0
	m.lastSyncAt = time.Time{}
	m.lastNotificationAt = time.Time{}
	m.lastError = ""
	m.lastErrorAt = time.Time{}
	m.errorsByCategory = make(map[string]int64)
}
