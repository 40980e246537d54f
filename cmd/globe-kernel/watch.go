package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalsfoundry/globe-kernel/internal/logging"
)

// Editors often save with several events in quick succession.
const watchDebounce = 100 * time.Millisecond

// watchScene evaluates the scene, then again after every change to path,
// until ctx is done. Evaluation errors are logged, not returned, so a broken
// save can be fixed without restarting.
func watchScene(ctx context.Context, path string, ev *evaluator, log logging.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	// Watch the directory so rename-over-write saves are seen.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	log.Info(ctx, "watching scene", logging.String("path", target))

	if err := ev.evaluateOnce(ctx); err != nil {
		log.Warn(ctx, "scene evaluation failed", logging.String("path", target), logging.Err(err))
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "watcher error", logging.Err(err))
		case <-pending:
			pending = nil
			if err := ev.evaluateOnce(ctx); err != nil {
				log.Warn(ctx, "scene evaluation failed", logging.String("path", target), logging.Err(err))
			}
		}
	}
}
