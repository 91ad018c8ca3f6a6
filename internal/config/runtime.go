// Package config provides centralized configuration for ProjectHub runtime values.
// Values start from DefaultRuntimeConfig, are overridden by the YAML config
// file and finally by PROJECTHUB_* environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PROJECTHUB_"

// RuntimeConfig holds all runtime configuration values.
type RuntimeConfig struct {
	Daemon     DaemonConfig     `yaml:"daemon"`
	HTTP       HTTPConfig       `yaml:"http"`
	RetryQueue RetryQueueConfig `yaml:"retry_queue"`
	Sync       SyncConfig       `yaml:"sync"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Backends   BackendConfig    `yaml:"backends"`
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	// StartupWait is the time to wait for the daemon to start before checking status.
	StartupWait time.Duration `yaml:"startup_wait"`

	// KillTimeout is the timeout for graceful shutdown before force kill.
	KillTimeout time.Duration `yaml:"kill_timeout"`
}

// HTTPConfig holds HTTP client configuration shared by webhook delivery and
// calendar feed fetching.
type HTTPConfig struct {
	Timeout     time.Duration   `yaml:"timeout"`
	MaxRetries  int             `yaml:"max_retries"`
	RetryDelays []time.Duration `yaml:"retry_delays"`
	UserAgent   string          `yaml:"user_agent"`
}

// RetryQueueConfig holds retry queue configuration.
type RetryQueueConfig struct {
	CheckInterval   time.Duration   `yaml:"check_interval"`
	BackoffSchedule []time.Duration `yaml:"backoff_schedule"`
}

// SyncConfig controls calendar feed synchronisation.
type SyncConfig struct {
	// DefaultInterval is used for calendars added without --interval.
	DefaultInterval time.Duration `yaml:"default_interval"`

	// PastWindow is how far back recurring events are kept.
	PastWindow time.Duration `yaml:"past_window"`

	// HorizonMonths bounds recurrence expansion into the future.
	HorizonMonths int `yaml:"horizon_months"`

	// MaxOccurrences bounds the instances generated for one recurring event.
	MaxOccurrences int `yaml:"max_occurrences"`

	// MaxConcurrent is the number of feeds synced in parallel.
	MaxConcurrent int `yaml:"max_concurrent"`

	// MaxFeedBytes caps the size of a downloaded feed.
	MaxFeedBytes int64 `yaml:"max_feed_bytes"`

	// LockTTL is how long a sync lock is held before it expires on its own.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// SchedulerConfig holds scheduler-related configuration.
type SchedulerConfig struct {
	// SleepThreshold is the time gap that indicates the system was sleeping.
	// Minute checks older than this are skipped.
	SleepThreshold time.Duration `yaml:"sleep_threshold"`

	// SyncSpec is the cron spec (with seconds) for the due-calendar sweep.
	SyncSpec string `yaml:"sync_spec"`
}

// BackendConfig selects storage and coordination backends.
type BackendConfig struct {
	// DatabasePath overrides the Badger directory. ":memory:" opens in-memory.
	DatabasePath string `yaml:"database"`

	// RedisURL enables the distributed sync lock.
	RedisURL string `yaml:"redis_url"`

	// PostgresURL enables mirroring synced events into Postgres.
	PostgresURL string `yaml:"postgres_url"`
}

// DefaultRuntimeConfig returns the default runtime configuration.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Daemon: DaemonConfig{
			StartupWait: 500 * time.Millisecond,
			KillTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelays: []time.Duration{
				0,
				5 * time.Second,
				30 * time.Second,
			},
			UserAgent: "projecthub/1.0",
		},
		RetryQueue: RetryQueueConfig{
			CheckInterval: 30 * time.Second,
			BackoffSchedule: []time.Duration{
				5 * time.Second,
				30 * time.Second,
				2 * time.Minute,
				5 * time.Minute,
				15 * time.Minute,
			},
		},
		Sync: SyncConfig{
			DefaultInterval: 30 * time.Minute,
			PastWindow:      30 * 24 * time.Hour,
			HorizonMonths:   6,
			MaxOccurrences:  365,
			MaxConcurrent:   4,
			MaxFeedBytes:    10 << 20,
			LockTTL:         2 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			SleepThreshold: 1 * time.Hour,
			SyncSpec:       "0 */5 * * * *",
		},
	}
}

// Global holds the process-wide runtime configuration.
var Global = initGlobal()

func initGlobal() *RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	cfg.loadFromEnv()
	return cfg
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			*dst = d
		}
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func (c *RuntimeConfig) loadFromEnv() {
	envDuration("DAEMON_STARTUP_WAIT", &c.Daemon.StartupWait)
	envDuration("DAEMON_KILL_TIMEOUT", &c.Daemon.KillTimeout)

	envDuration("HTTP_TIMEOUT", &c.HTTP.Timeout)
	envInt("HTTP_MAX_RETRIES", &c.HTTP.MaxRetries)

	envDuration("RETRY_QUEUE_INTERVAL", &c.RetryQueue.CheckInterval)

	envDuration("SYNC_INTERVAL", &c.Sync.DefaultInterval)
	envInt("SYNC_MAX_CONCURRENT", &c.Sync.MaxConcurrent)
	envInt("SYNC_HORIZON_MONTHS", &c.Sync.HorizonMonths)
	envDuration("SYNC_LOCK_TTL", &c.Sync.LockTTL)

	envDuration("SLEEP_THRESHOLD", &c.Scheduler.SleepThreshold)

	envString("DATABASE", &c.Backends.DatabasePath)
	envString("REDIS_URL", &c.Backends.RedisURL)
	envString("POSTGRES_URL", &c.Backends.PostgresURL)
}

// ReloadFromEnv reapplies environment overrides.
func (c *RuntimeConfig) ReloadFromEnv() {
	c.loadFromEnv()
}

// Reset restores the defaults. Primarily for tests.
func (c *RuntimeConfig) Reset() {
	*c = *DefaultRuntimeConfig()
}
