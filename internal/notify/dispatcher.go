package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// Dispatcher sends notifications to all enabled webhooks.
type Dispatcher struct {
	webhookRepo *storage.WebhookRepo
	httpClient  *HTTPClient
	queue       *RetryQueue
	onResult    func(DispatchResult)
	debug       bool
}

// NewDispatcher creates a new notification dispatcher.
func NewDispatcher(webhookRepo *storage.WebhookRepo) *Dispatcher {
	return &Dispatcher{
		webhookRepo: webhookRepo,
		httpClient:  NewHTTPClient(),
	}
}

// SetDebug enables or disables debug output.
func (d *Dispatcher) SetDebug(debug bool) {
	d.debug = debug
}

// SetHTTPClient replaces the client used for delivery.
func (d *Dispatcher) SetHTTPClient(c *HTTPClient) {
	d.httpClient = c
}

// SetRetryQueue attaches a queue that receives retryable failures.
func (d *Dispatcher) SetRetryQueue(q *RetryQueue) {
	d.queue = q
}

// OnResult registers a callback invoked after every delivery attempt.
func (d *Dispatcher) OnResult(fn func(DispatchResult)) {
	d.onResult = fn
}

// DispatchResult contains the result of dispatching to a single webhook.
type DispatchResult struct {
	WebhookName string
	Success     bool
	StatusCode  int
	Duration    time.Duration
	Queued      bool
	Error       error
}

// SendNotification sends a notification to every enabled webhook in
// parallel. One webhook failing never stops delivery to the others.
func (d *Dispatcher) SendNotification(ctx context.Context, n *model.Notification) []DispatchResult {
	webhooks, err := d.webhookRepo.ListEnabled()
	if err != nil {
		return []DispatchResult{{
			WebhookName: "all",
			Error:       fmt.Errorf("failed to list webhooks: %w", err),
		}}
	}
	if len(webhooks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	results := make([]DispatchResult, len(webhooks))
	for i, webhook := range webhooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.sendToWebhook(ctx, n, webhook)
		}()
	}
	wg.Wait()

	log := logging.FromContext(ctx)
	for _, r := range results {
		if r.Error != nil {
			log.Warn("notification delivery failed",
				logging.KeyWebhook, r.WebhookName,
				"type", n.Type,
				"queued", r.Queued,
				logging.KeyError, r.Error)
		}
	}
	return results
}

// sendToWebhook formats and delivers n to one webhook.
func (d *Dispatcher) sendToWebhook(ctx context.Context, n *model.Notification, webhook *model.Webhook) DispatchResult {
	result := DispatchResult{WebhookName: webhook.Name}
	defer func() {
		if d.onResult != nil {
			d.onResult(result)
		}
	}()

	formatter := FormatterFor(webhook)
	payload, err := formatter.Format(n)
	if err != nil {
		result.Error = fmt.Errorf("failed to format notification: %w", err)
		d.updateWebhookStatus(webhook.Name, result.Error)
		return result
	}

	sent := d.httpClient.Send(ctx, webhook.URL, formatter.ContentType(), payload)
	result.StatusCode = sent.StatusCode
	result.Duration = sent.Duration
	result.Error = sent.Error
	result.Success = sent.Error == nil

	if d.debug {
		logging.DebugLog("webhook delivered",
			logging.KeyWebhook, webhook.Name,
			logging.KeyStatus, sent.StatusCode,
			"attempts", sent.Attempts,
			logging.KeyDuration, sent.Duration.Milliseconds())
	}

	if sent.Error != nil && sent.Retryable && d.queue != nil {
		d.queue.EnqueueWithError(uuid.NewString(), webhook.Name, webhook.URL,
			formatter.ContentType(), payload, len(d.queue.backoff), sent.Error)
		result.Queued = true
	}

	d.updateWebhookStatus(webhook.Name, sent.Error)
	return result
}

// updateWebhookStatus records the last-used time and error of a webhook.
func (d *Dispatcher) updateWebhookStatus(name string, err error) {
	if uerr := d.webhookRepo.UpdateLastUsed(name, err); uerr != nil {
		logging.DebugLog("failed to update webhook status", logging.KeyWebhook, name, logging.KeyError, uerr)
	}
}

// SendToSingle sends a notification to a single webhook by name, enabled or not.
func (d *Dispatcher) SendToSingle(ctx context.Context, n *model.Notification, webhookName string) DispatchResult {
	webhook, err := d.webhookRepo.Get(webhookName)
	if err != nil {
		return DispatchResult{
			WebhookName: webhookName,
			Error:       fmt.Errorf("webhook not found: %w", err),
		}
	}
	return d.sendToWebhook(ctx, n, webhook)
}

// TestWebhook sends a test notification to a specific webhook.
func (d *Dispatcher) TestWebhook(ctx context.Context, webhookName string) DispatchResult {
	n := model.NewNotification(
		model.NotifyTest,
		"ProjectHub Test",
		"This is a test notification from ProjectHub. If you see this, your webhook is configured correctly!",
	).WithField("Webhook", webhookName).WithField("Time", time.Now().Format("3:04 PM"))

	return d.SendToSingle(ctx, n, webhookName)
}

// HasEnabledWebhooks returns true if there are any enabled webhooks.
func (d *Dispatcher) HasEnabledWebhooks() bool {
	return d.CountEnabledWebhooks() > 0
}

// CountEnabledWebhooks returns the number of enabled webhooks.
func (d *Dispatcher) CountEnabledWebhooks() int {
	webhooks, err := d.webhookRepo.ListEnabled()
	if err != nil {
		return 0
	}
	return len(webhooks)
}
