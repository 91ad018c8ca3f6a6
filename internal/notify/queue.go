package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/logging"
)

// QueuedNotification represents a formatted payload waiting to be re-sent.
type QueuedNotification struct {
	ID          string          `json:"id"`
	WebhookName string          `json:"webhook_name"`
	URL         string          `json:"url"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
	CreatedAt   time.Time       `json:"created_at"`
	NextRetry   time.Time       `json:"next_retry"`
	Attempts    int             `json:"attempts"`
	MaxRetries  int             `json:"max_retries"`
	LastError   string          `json:"last_error,omitempty"`
}

// RetryQueue re-sends failed notifications in the background with
// exponential backoff.
type RetryQueue struct {
	mu       sync.RWMutex
	queue    []*QueuedNotification
	client   *HTTPClient
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	interval time.Duration
	backoff  []time.Duration
	now      func() time.Time

	totalQueued int
	totalSent   int
	totalFailed int
}

// NewRetryQueue creates a retry queue configured from config.Global.RetryQueue.
// Each queued attempt is a single request; the queue owns the backoff.
func NewRetryQueue(client *HTTPClient) *RetryQueue {
	ctx, cancel := context.WithCancel(context.Background())
	single := *client
	single.maxRetries = 0

	cfg := config.Global.RetryQueue
	backoff := cfg.BackoffSchedule
	if len(backoff) == 0 {
		backoff = config.DefaultRuntimeConfig().RetryQueue.BackoffSchedule
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = config.DefaultRuntimeConfig().RetryQueue.CheckInterval
	}

	return &RetryQueue{
		queue:    make([]*QueuedNotification, 0),
		client:   &single,
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
		backoff:  backoff,
		now:      time.Now,
	}
}

// Start begins processing the retry queue in the background.
func (q *RetryQueue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	q.wg.Add(1)
	go q.processLoop()
}

// Stop stops the retry queue processor. Pending items are dropped.
func (q *RetryQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// Enqueue adds a failed notification to the retry queue.
func (q *RetryQueue) Enqueue(id, webhookName, url, contentType string, body []byte, maxRetries int) {
	q.EnqueueWithError(id, webhookName, url, contentType, body, maxRetries, nil)
}

// EnqueueWithError adds a failed notification with the error that caused it.
func (q *RetryQueue) EnqueueWithError(id, webhookName, url, contentType string, body []byte, maxRetries int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	n := &QueuedNotification{
		ID:          id,
		WebhookName: webhookName,
		URL:         url,
		ContentType: contentType,
		Body:        body,
		CreatedAt:   now,
		NextRetry:   now.Add(q.backoffFor(0)),
		MaxRetries:  maxRetries,
	}
	if err != nil {
		n.LastError = err.Error()
	}

	q.queue = append(q.queue, n)
	q.totalQueued++

	logging.Info("notification queued for retry",
		logging.KeyWebhook, webhookName,
		"queue_size", len(q.queue),
		logging.KeyError, err)
}

func (q *RetryQueue) processLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processQueue()
		}
	}
}

// processQueue attempts every notification whose NextRetry has passed.
func (q *RetryQueue) processQueue() {
	q.mu.Lock()
	now := q.now()

	var ready, remaining []*QueuedNotification
	for _, n := range q.queue {
		if !n.NextRetry.After(now) {
			ready = append(ready, n)
		} else {
			remaining = append(remaining, n)
		}
	}
	q.queue = remaining
	q.mu.Unlock()

	for _, n := range ready {
		q.processNotification(n)
	}
}

func (q *RetryQueue) processNotification(n *QueuedNotification) {
	n.Attempts++

	logging.DebugLog("retrying notification",
		logging.KeyWebhook, n.WebhookName,
		"attempt", n.Attempts,
		"max_retries", n.MaxRetries)

	result := q.client.Send(q.ctx, n.URL, n.ContentType, n.Body)
	if result.Error == nil {
		q.mu.Lock()
		q.totalSent++
		q.mu.Unlock()

		logging.Info("queued notification sent",
			logging.KeyWebhook, n.WebhookName,
			"attempts", n.Attempts,
			logging.KeyDuration, result.Duration.Milliseconds())
		return
	}

	n.LastError = result.Error.Error()

	if !result.Retryable || n.Attempts >= n.MaxRetries {
		q.mu.Lock()
		q.totalFailed++
		q.mu.Unlock()

		logging.Warn("notification dropped from retry queue",
			logging.KeyWebhook, n.WebhookName,
			"attempts", n.Attempts,
			logging.KeyError, result.Error)
		return
	}

	n.NextRetry = q.now().Add(q.backoffFor(n.Attempts))

	q.mu.Lock()
	q.queue = append(q.queue, n)
	q.mu.Unlock()

	logging.DebugLog("notification re-queued",
		logging.KeyWebhook, n.WebhookName,
		"next_retry", n.NextRetry,
		"attempts", n.Attempts)
}

// backoffFor returns the wait after the given attempt; the last step repeats.
func (q *RetryQueue) backoffFor(attempt int) time.Duration {
	if attempt >= len(q.backoff) {
		return q.backoff[len(q.backoff)-1]
	}
	return q.backoff[attempt]
}

// QueueStats returns statistics about the retry queue.
type QueueStats struct {
	QueueSize   int `json:"queue_size"`
	TotalQueued int `json:"total_queued"`
	TotalSent   int `json:"total_sent"`
	TotalFailed int `json:"total_failed"`
}

// Stats returns current queue statistics.
func (q *RetryQueue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return QueueStats{
		QueueSize:   len(q.queue),
		TotalQueued: q.totalQueued,
		TotalSent:   q.totalSent,
		TotalFailed: q.totalFailed,
	}
}

// Pending returns the number of pending notifications.
func (q *RetryQueue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.queue)
}

// Clear removes all pending notifications from the queue.
func (q *RetryQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = make([]*QueuedNotification, 0)
}
