// Package watcher re-lists a notebook's checkpoints when the checkpoint
// directory changes outside the server.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is the quiet period after the last change before re-listing.
const Debounce = 200 * time.Millisecond

// Refresher publishes the current checkpoint list.
type Refresher interface {
	RefreshCheckpoints()
}

// Watch watches dir (the notebook's directory) and its checkpoint
// subdirectory named cpDir until ctx is cancelled. Bursts of changes under
// cpDir, including its creation or removal, are debounced into a single
// RefreshCheckpoints call.
func Watch(ctx context.Context, dir, cpDir string, target Refresher, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	cpPath := filepath.Join(dir, cpDir)
	if info, statErr := os.Stat(cpPath); statErr == nil && info.IsDir() {
		if err := w.Add(cpPath); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("dir", cpPath))

	var refreshTimer *time.Timer
	var refreshCh <-chan time.Time

	scheduleRefresh := func() {
		if refreshTimer == nil {
			refreshTimer = time.NewTimer(Debounce)
			refreshCh = refreshTimer.C
		} else {
			refreshTimer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if refreshTimer != nil {
				refreshTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-refreshCh:
			logger.Debug("watcher: checkpoints changed", slog.String("dir", cpPath))
			target.RefreshCheckpoints()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			switch {
			case ev.Name == cpPath:
				// The checkpoint directory itself appeared or went away.
				if ev.Op&fsnotify.Create != 0 {
					if addErr := w.Add(cpPath); addErr != nil {
						logger.Warn("watcher: add checkpoint dir failed",
							slog.String("path", cpPath),
							slog.String("error", addErr.Error()))
					}
				}
				scheduleRefresh()
			case filepath.Dir(ev.Name) == cpPath:
				scheduleRefresh()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
