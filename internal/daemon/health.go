package daemon

import (
	"context"
	"encoding/json"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc checks one dependency.
type CheckFunc func(ctx context.Context) error

// HealthStatus represents the current health state of the daemon.
type HealthStatus struct {
	Status               string        `json:"status"`
	UptimeSeconds        int64         `json:"uptime_seconds"`
	MemoryMB             float64       `json:"memory_mb"`
	Goroutines           int           `json:"goroutines"`
	PendingNotifications int           `json:"pending_notifications"`
	LastCheck            time.Time     `json:"last_check"`
	Version              string        `json:"version,omitempty"`
	Checks               []CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthChecker runs named dependency checks for the daemon.
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	version   string
	checks    map[string]CheckFunc
	pending   func() int
	timeout   time.Duration
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		version:   version,
		checks:    make(map[string]CheckFunc),
		timeout:   5 * time.Second,
	}
}

// AddCheck registers a named check, replacing any with the same name.
func (h *HealthChecker) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RemoveCheck removes a named check.
func (h *HealthChecker) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// SetPendingFunc sets the source of the pending notification count.
func (h *HealthChecker) SetPendingFunc(fn func() int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = fn
}

// Check runs every registered check and reports the daemon's health. Each
// check gets its own timeout; results are sorted by name.
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	pending := h.pending
	h.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := &HealthStatus{
		Status:        StatusHealthy,
		UptimeSeconds: int64(h.Uptime().Seconds()),
		MemoryMB:      float64(memStats.Alloc) / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
		LastCheck:     time.Now(),
		Version:       h.version,
	}
	if pending != nil {
		status.PendingNotifications = pending()
	}

	for _, name := range slices.Sorted(maps.Keys(checks)) {
		result := CheckResult{Name: name, Healthy: true}
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		if err := checks[name](checkCtx); err != nil {
			result.Healthy = false
			result.Error = err.Error()
			status.Status = StatusUnhealthy
		}
		cancel()
		status.Checks = append(status.Checks, result)
	}
	return status
}

// IsHealthy returns true if every check passes.
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Status == StatusHealthy
}

// JSON returns the health status as JSON.
func (h *HealthChecker) JSON(ctx context.Context) ([]byte, error) {
	return json.MarshalIndent(h.Check(ctx), "", "  ")
}

// Uptime returns how long the daemon has been running.
func (h *HealthChecker) Uptime() time.Duration {
	return time.Since(h.startTime)
}
