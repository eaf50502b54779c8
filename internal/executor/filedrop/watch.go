package filedrop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// awaitPickup blocks until the trigger file at path is consumed
// (removed or renamed away) by the external runtime, or ctx is done.
// The directory watch is registered before the existence re-check so a
// pickup landing between the two is not missed.
func awaitPickup(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filedrop: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("filedrop: watch %s: %w", dir, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watcher.Errors:
			return fmt.Errorf("filedrop: watch error: %w", err)
		case ev := <-watcher.Events:
			if ev.Name == path && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return nil
			}
		}
	}
}
