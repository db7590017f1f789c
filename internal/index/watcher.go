package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/observable"
)

// Debounce is how long Watch waits after a snapshot before syncing, so a
// burst of mutations is indexed once.
const Debounce = 200 * time.Millisecond

// Watch keeps the index in line with the published node snapshots until ctx
// is cancelled. It syncs once at start and then after every burst of
// snapshots, calling cb (if non-nil) after each index mutation.
func Watch(ctx context.Context, db *DB, nodes *observable.Value[[]models.Node], tags TagNamer, logger *slog.Logger, cb EventCallback) error {
	pending := make(chan struct{}, 1)
	notify := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}
	unsubscribe := nodes.Subscribe(func([]models.Node) { notify() })
	defer unsubscribe()
	notify()

	logger.Info("watcher: started")

	// syncTimer debounces bursts of snapshots.
	var syncTimer *time.Timer
	var syncCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-pending:
			if syncTimer == nil {
				syncTimer = time.NewTimer(Debounce)
				syncCh = syncTimer.C
			} else {
				syncTimer.Reset(Debounce)
			}

		case <-syncCh:
			if err := Sync(db, nodes.Get(), tags, logger, cb); err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
			}
		}
	}
}
