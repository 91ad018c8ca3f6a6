package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/validate"
)

// DefaultMaxBodyBytes caps a downloaded feed.
const DefaultMaxBodyBytes int64 = 10 << 20

// maxRedirects matches net/http's default redirect limit.
const maxRedirects = 10

// ErrUnsafeRedirect is returned when a feed redirects to a host that a
// subscription URL could not name directly.
var ErrUnsafeRedirect = errors.New("feed redirected to a disallowed address")

// FetchResult is the outcome of a successful fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	Body        []byte
	ETag        string
	NotModified bool
	Attempts    int
}

// FetchError is returned for transport failures and non-2xx replies.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error

	permanent bool
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", logging.MaskURL(e.URL), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", logging.MaskURL(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt: network
// errors, 429 and 5xx.
func (e *FetchError) Retryable() bool {
	if e.permanent {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Fetcher downloads calendar feeds with conditional requests and retries.
type Fetcher struct {
	Client       *http.Client
	MaxBodyBytes int64
	UserAgent    string
	MaxRetries   int
	RetryDelays  []time.Duration
}

// NewFetcher creates a fetcher from the global HTTP and sync configuration.
func NewFetcher() *Fetcher {
	cfg := config.Global
	maxBytes := cfg.Sync.MaxFeedBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	delays := make([]time.Duration, len(cfg.HTTP.RetryDelays))
	copy(delays, cfg.HTTP.RetryDelays)

	return &Fetcher{
		Client:       &http.Client{Timeout: cfg.HTTP.Timeout, CheckRedirect: CheckRedirect},
		MaxBodyBytes: maxBytes,
		UserAgent:    cfg.HTTP.UserAgent,
		MaxRetries:   cfg.HTTP.MaxRetries,
		RetryDelays:  delays,
	}
}

// CheckRedirect is an http.Client redirect policy that re-validates every
// hop as a feed URL. A redirect to a loopback address is allowed only when
// the original request was already local.
func CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	host := req.URL.Hostname()
	if err := validate.FeedURL(req.URL.String()); err != nil {
		return fmt.Errorf("%w: %s", ErrUnsafeRedirect, host)
	}
	if len(via) > 0 && isLoopback(host) && !isLoopback(via[0].URL.Hostname()) {
		return fmt.Errorf("%w: %s", ErrUnsafeRedirect, host)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// transportError strips the *url.Error wrapper, whose text repeats the full
// request URL including any token in the path.
func transportError(err error) error {
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

// NormalizeURL rewrites webcal:// and webcals:// to https://.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "webcals://"):
		return "https://" + raw[len("webcals://"):]
	case strings.HasPrefix(lower, "webcal://"):
		return "https://" + raw[len("webcal://"):]
	}
	return raw
}

// Fetch downloads url. When etag is set it is sent as If-None-Match and a
// 304 reply yields NotModified with no body.
func (f *Fetcher) Fetch(ctx context.Context, url, etag string) (*FetchResult, error) {
	url = NormalizeURL(url)
	log := logging.FromContext(ctx).With(logging.KeyURL, url)

	attempts := f.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr *FetchError
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := f.delay(attempt)
			log.Debug("retrying feed fetch", "attempt", attempt+1, "delay", delay, logging.KeyError, lastErr)
			select {
			case <-ctx.Done():
				return nil, &FetchError{URL: url, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		result, err := f.fetchOnce(ctx, url, etag)
		if err == nil {
			result.Attempts = attempt + 1
			return result, nil
		}
		lastErr = err
		if !err.Retryable() || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) delay(attempt int) time.Duration {
	if len(f.RetryDelays) == 0 {
		return 0
	}
	if attempt < len(f.RetryDelays) {
		return f.RetryDelays[attempt]
	}
	return f.RetryDelays[len(f.RetryDelays)-1]
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, etag string) (*FetchResult, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: transportError(err), permanent: true}
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		cause := transportError(err)
		return nil, &FetchError{URL: url, Err: cause, permanent: errors.Is(cause, ErrUnsafeRedirect)}
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		ETag:       resp.Header.Get("ETag"),
	}

	if resp.StatusCode == http.StatusNotModified {
		result.NotModified = true
		if result.ETag == "" {
			result.ETag = etag
		}
		return result, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(snippet))),
		}
	}

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > limit {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("feed exceeds %d bytes", limit),
			permanent:  true,
		}
	}
	result.Body = body
	return result, nil
}
