package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/projecthub/internal/calsync"
	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// Syncer syncs every calendar whose interval has elapsed.
type Syncer interface {
	SyncDue(ctx context.Context) ([]*calsync.Result, error)
}

// SyncRunner runs due calendar syncs and reports failures as notifications.
type SyncRunner struct {
	syncer       Syncer
	notifyConfig *storage.NotifyConfigRepo
	notifier     Notifier
	onResult     func(*calsync.Result)
	running      atomic.Bool
	debug        bool
}

// NewSyncRunner creates a sync runner. notifier may be nil to disable
// failure notifications.
func NewSyncRunner(db *storage.DB, syncer Syncer, notifier Notifier) *SyncRunner {
	return &SyncRunner{
		syncer:       syncer,
		notifyConfig: storage.NewNotifyConfigRepo(db),
		notifier:     notifier,
	}
}

// SetDebug enables debug output.
func (r *SyncRunner) SetDebug(debug bool) {
	r.debug = debug
}

// OnResult registers a callback invoked for every calendar result.
func (r *SyncRunner) OnResult(fn func(*calsync.Result)) {
	r.onResult = fn
}

// Run syncs due calendars. A run that starts while the previous one is still
// going returns immediately with nil.
func (r *SyncRunner) Run(ctx context.Context) []*calsync.Result {
	if !r.running.CompareAndSwap(false, true) {
		logging.FromContext(ctx).Debug("sync run already in progress")
		return nil
	}
	defer r.running.Store(false)

	log := logging.FromContext(ctx).With(logging.KeyOperation, "sync_due")
	start := time.Now()
	results, err := r.syncer.SyncDue(ctx)
	if err != nil {
		log.Error("failed to list due calendars", logging.KeyError, err)
		return nil
	}

	failed := 0
	for _, res := range results {
		if r.onResult != nil {
			r.onResult(res)
		}
		if res.Err == nil {
			if r.debug {
				log.Debug("calendar synced",
					logging.KeyCalendar, res.Name,
					"added", res.Added,
					"updated", res.Updated,
					"removed", res.Removed,
					"unchanged", res.Unchanged)
			}
			continue
		}
		if errors.Is(res.Err, errors.ErrSyncInProgress) {
			continue
		}
		failed++
		log.Warn("calendar sync failed", logging.KeyCalendar, res.Name, logging.KeySyncID, res.SyncID, logging.KeyError, res.Err)
		r.notifyFailure(ctx, res)
	}

	if len(results) > 0 {
		log.Info("sync run complete",
			logging.KeyCount, len(results),
			"failed", failed,
			logging.KeyDuration, time.Since(start).Round(time.Millisecond).String())
	}
	return results
}

func (r *SyncRunner) notifyFailure(ctx context.Context, res *calsync.Result) {
	if r.notifier == nil {
		return
	}
	cfg, err := r.notifyConfig.Get()
	if err != nil || !cfg.IsTypeEnabled(model.NotifySyncFailed) {
		return
	}

	n := model.NewNotification(model.NotifySyncFailed,
		fmt.Sprintf("Calendar sync failed: %s", res.Name),
		logging.MaskString(res.Err.Error()))
	n.WithField("Calendar", res.Name)
	n.WithField("Sync ID", res.SyncID)
	if errors.IsRecoverableError(res.Err) {
		n.WithField("Retry", "next scheduled run")
	}
	if len(res.Warnings) > 0 {
		n.WithField("Warnings", strconv.Itoa(len(res.Warnings)))
	}
	send(ctx, r.notifier, n, r.debug)
}
