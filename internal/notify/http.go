package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/logging"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// HTTPClient posts webhook payloads, retrying 429 and 5xx responses.
type HTTPClient struct {
	client     *http.Client
	maxRetries int
	retryDelay []time.Duration
	userAgent  string
}

// NewHTTPClient creates a client from config.Global.HTTP.
func NewHTTPClient() *HTTPClient {
	return NewHTTPClientWithConfig(config.Global.HTTP)
}

// NewHTTPClientWithConfig creates a client from an explicit HTTP config.
func NewHTTPClientWithConfig(cfg config.HTTPConfig) *HTTPClient {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelays,
		userAgent:  cfg.UserAgent,
	}
}

// SendResult contains the result of a send operation.
type SendResult struct {
	StatusCode int
	Duration   time.Duration
	Attempts   int
	Error      error

	// Retryable is set when the last failure was a network error, 429 or
	// 5xx, so a later attempt may succeed.
	Retryable bool
}

// Send posts body to url, retrying up to maxRetries times after the first attempt.
func (c *HTTPClient) Send(ctx context.Context, url string, contentType string, body []byte) *SendResult {
	result := &SendResult{}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		result.Attempts = attempt + 1

		if d := c.delay(attempt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				result.Error = ctx.Err()
				result.Retryable = false
				return result
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			result.Error = fmt.Errorf("failed to create request: %w", err)
			result.Retryable = false
			return result
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				result.Error = ctx.Err()
				result.Retryable = false
				return result
			}
			result.Error = fmt.Errorf("request to %s failed: %w", logging.MaskURL(url), err)
			result.Retryable = true
			continue
		}

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		result.StatusCode = resp.StatusCode
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result.Error = nil
			result.Retryable = false
			return result
		case resp.StatusCode == http.StatusTooManyRequests:
			result.Error = fmt.Errorf("rate limited (HTTP 429)")
			result.Retryable = true
		case resp.StatusCode >= 500:
			result.Error = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, snippet)
			result.Retryable = true
		default:
			result.Error = fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, snippet)
			result.Retryable = false
			return result
		}

		logging.DebugLog("webhook attempt failed",
			logging.KeyURL, url,
			"attempt", result.Attempts,
			logging.KeyStatus, resp.StatusCode)
	}

	return result
}

// delay returns the wait before the given attempt. The last configured
// delay repeats when there are more attempts than delays.
func (c *HTTPClient) delay(attempt int) time.Duration {
	if attempt == 0 || len(c.retryDelay) == 0 {
		return 0
	}
	if attempt < len(c.retryDelay) {
		return c.retryDelay[attempt]
	}
	return c.retryDelay[len(c.retryDelay)-1]
}

// SendWithTimeout sends a request with a specific timeout.
func (c *HTTPClient) SendWithTimeout(url string, contentType string, body []byte, timeout time.Duration) *SendResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Send(ctx, url, contentType, body)
}
