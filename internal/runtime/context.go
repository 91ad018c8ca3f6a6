// Package runtime wires the storage, sync and notification layers into the
// context shared by CLI commands and the daemon.
package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manav03panchal/projecthub/internal/calsync"
	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/mirror"
	"github.com/manav03panchal/projecthub/internal/notify"
	"github.com/manav03panchal/projecthub/internal/output"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// Context holds the application runtime context.
type Context struct {
	DB        *storage.DB
	Formatter *output.Formatter

	// Repositories
	ProjectRepo      *storage.ProjectRepo
	TaskRepo         *storage.TaskRepo
	ActivityRepo     *storage.ActivityRepo
	CalendarRepo     *storage.CalendarSyncRepo
	EventRepo        *storage.SyncedEventRepo
	WebhookRepo      *storage.WebhookRepo
	NotifyConfigRepo *storage.NotifyConfigRepo
	ConfigRepo       *storage.ConfigRepo

	// Debug mode
	Debug bool

	backendsOnce sync.Once
	backendsErr  error
	redis        *redis.Client
	mirror       *mirror.Lazy
	syncService  *calsync.Service
	dispatcher   *notify.Dispatcher
}

// Options configures the runtime context.
type Options struct {
	DBPath    string
	InMemory  bool
	Format    output.Format
	ColorMode output.ColorMode
	Debug     bool
}

// DefaultOptions returns default runtime options. The database path comes
// from config.Global so PROJECTHUB_DATABASE and the config file apply.
func DefaultOptions() Options {
	path := config.Global.Backends.DatabasePath
	if path == "" {
		path = storage.DefaultPath()
	}
	return Options{
		DBPath:    path,
		InMemory:  path == storage.MemoryPath,
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
	}
}

// New opens the database and creates the repositories. Remote backends are
// connected lazily by SyncService.
func New(opts Options) (*Context, error) {
	db, err := storage.Open(storage.Options{
		Path:     opts.DBPath,
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, WrapDiskFullError(err, "open", opts.DBPath)
	}

	formatter := output.NewFormatter()
	formatter.Format = opts.Format
	formatter.ColorMode = opts.ColorMode

	return &Context{
		DB:               db,
		Formatter:        formatter,
		ProjectRepo:      storage.NewProjectRepo(db),
		TaskRepo:         storage.NewTaskRepo(db),
		ActivityRepo:     storage.NewActivityRepo(db),
		CalendarRepo:     storage.NewCalendarSyncRepo(db),
		EventRepo:        storage.NewSyncedEventRepo(db),
		WebhookRepo:      storage.NewWebhookRepo(db),
		NotifyConfigRepo: storage.NewNotifyConfigRepo(db),
		ConfigRepo:       storage.NewConfigRepo(db),
		Debug:            opts.Debug,
	}, nil
}

const mirrorConnectTimeout = 5 * time.Second

// connectBackends opens Redis and Postgres when they are configured. Only a
// Redis failure is fatal; the Postgres mirror reconnects on later syncs.
func (c *Context) connectBackends(ctx context.Context) error {
	c.backendsOnce.Do(func() {
		backends := config.Global.Backends
		if backends.RedisURL != "" {
			client, err := calsync.OpenRedis(ctx, backends.RedisURL)
			if err != nil {
				c.backendsErr = err
				return
			}
			c.redis = client
			logging.DebugLog("redis sync locks enabled", logging.KeyURL, logging.MaskURL(backends.RedisURL))
		}
		if backends.PostgresURL != "" {
			c.mirror = mirror.NewLazy(backends.PostgresURL)
			pingCtx, cancel := context.WithTimeout(ctx, mirrorConnectTimeout)
			err := c.mirror.Ping(pingCtx)
			cancel()
			if err != nil {
				logging.Warn("postgres mirror unreachable, will retry on next sync",
					logging.KeyURL, logging.MaskURL(backends.PostgresURL), logging.KeyError, err)
			} else {
				logging.DebugLog("postgres mirror enabled", logging.KeyURL, logging.MaskURL(backends.PostgresURL))
			}
		}
	})
	return c.backendsErr
}

// SyncService returns the calendar sync service, connecting the Redis lock
// and Postgres mirror on first use.
func (c *Context) SyncService(ctx context.Context) (*calsync.Service, error) {
	if c.syncService != nil {
		return c.syncService, nil
	}
	if err := c.connectBackends(ctx); err != nil {
		return nil, err
	}

	var opts []calsync.Option
	if c.redis != nil {
		opts = append(opts, calsync.WithLocker(calsync.NewRedisLocker(c.redis)))
	}
	if c.mirror != nil {
		opts = append(opts, calsync.WithMirror(c.mirror))
	}
	c.syncService = calsync.NewService(c.DB, opts...)
	return c.syncService, nil
}

// Dispatcher returns the webhook dispatcher.
func (c *Context) Dispatcher() *notify.Dispatcher {
	if c.dispatcher == nil {
		c.dispatcher = notify.NewDispatcher(c.WebhookRepo)
		c.dispatcher.SetDebug(c.Debug)
	}
	return c.dispatcher
}

// Redis returns the Redis client, or nil when none is configured or
// SyncService has not connected yet.
func (c *Context) Redis() *redis.Client {
	return c.redis
}

// Mirror returns the Postgres mirror, or nil when none is configured.
func (c *Context) Mirror() *mirror.Lazy {
	return c.mirror
}

// Close closes the database and any remote backends.
func (c *Context) Close() error {
	if c.redis != nil {
		c.redis.Close()
	}
	if c.mirror != nil {
		c.mirror.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// IsCLI returns true if output format is CLI.
func (c *Context) IsCLI() bool {
	return c.Formatter.Format == output.FormatCLI
}

// Debugf logs a debug message if debug mode is enabled.
func (c *Context) Debugf(format string, args ...any) {
	if c.Debug {
		c.Formatter.Printf("[DEBUG] "+format+"\n", args...)
	}
}
