package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file on change so threshold tweaks (filter
// band, dust/whale, scam factor) apply without a restart. Editors replace
// files via rename, so the parent directory is watched rather than the file.
type Watcher struct {
	Path     string
	Cooldown time.Duration // minimum spacing between reloads
}

// Start blocks until ctx is done, invoking onUpdate with each config that
// loads and validates. Invalid intermediate states (half-written files) are
// skipped silently.
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	cooldown := w.Cooldown
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.Path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(w.Path)
	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if time.Since(lastReload) < cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				continue
			}
			lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return nil
			}
		}
	}
}
