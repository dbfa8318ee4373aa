package main

import (
	"context"
	"fmt"
	"time"
)

// startCleanupSweeper drains the pending file deletion queue every
// cleanup interval, and right away when kicked.
func (app *application) startCleanupSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(app.config.cleanup.interval)
		defer ticker.Stop()

		// Run once immediately
		app.sweepPendingDeletions(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-app.cleanupKick:
			}
			app.sweepPendingDeletions(ctx)
		}
	}()
}

// kickCleanup asks the sweeper for an early pass. Never blocks.
func (app *application) kickCleanup() {
	select {
	case app.cleanupKick <- struct{}{}:
	default:
	}
}

// sweepPendingDeletions deletes one batch of queued files and reports how
// many were removed. Failures stay queued until maxAttempts.
func (app *application) sweepPendingDeletions(ctx context.Context) int {
	due, err := app.store.Cleanup.Due(ctx, app.config.cleanup.batchSize, app.config.cleanup.maxAttempts)
	if err != nil {
		app.logger.Errorf("Error loading pending file deletions: %v", err)
		return 0
	}

	deleted := 0
	for _, item := range due {
		if err := app.uploads.Delete(ctx, item.Path); err != nil {
			app.logger.Warnw("file deletion failed", "path", item.Path, "attempt", item.Attempts+1, "error", err)
			if err := app.store.Cleanup.Failed(ctx, item.ID, err); err != nil {
				app.logger.Errorf("Error recording failed deletion %s: %v", item.ID, err)
			}
			continue
		}
		if err := app.store.Cleanup.Done(ctx, item.ID); err != nil {
			app.logger.Errorf("Error dequeuing deletion %s: %v", item.ID, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		app.logger.Infof("Removed %d orphaned file(s) at %s", deleted, time.Now().Format(time.RFC1123))
	}
	return deleted
}

// background runs fn outside the request; run waits for these on shutdown.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Errorw("background task panicked", "error", fmt.Sprint(err))
			}
		}()
		fn()
	}()
}
