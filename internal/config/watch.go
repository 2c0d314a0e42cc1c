// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// LIVE RELOAD
// =============================================================================

// DefaultReloadDebounce coalesces the burst of events editors produce on save.
const DefaultReloadDebounce = 200 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// result to onChange. A file that fails to load or validate is reported
// with a nil config. Watch returns once the watcher is running; it stops
// when ctx is done.
//
// The parent directory is watched rather than the file, so editors that
// replace the file by rename are still seen.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				cfg, err := LoadFromPath(path)
				if err != nil {
					log.Printf("CONFIG_RELOAD_ERROR | path=%s error=%v", path, err)
					onChange(nil, err)
					continue
				}
				log.Printf("CONFIG_RELOADED | path=%s", path)
				onChange(cfg, nil)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("CONFIG_WATCH_ERROR | path=%s error=%v", path, err)
			}
		}
	}()

	return nil
}
