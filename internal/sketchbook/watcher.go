package sketchbook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watcherDebounce = 500 * time.Millisecond

// Changed carries the sketch list after the sketchbook settles.
type Changed struct {
	Root     string
	Sketches []Sketch
	Err      error
}

// Watch watches root and its immediate subdirectories, and after each burst
// of changes re-lists the sketchbook and passes the result to emit. It blocks
// until ctx is cancelled.
func Watch(ctx context.Context, root, ext string, emit func(Changed)) error {
	root = ExpandHome(root)
	logger := slog.With("component", "sketchbook")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	addSubdirs(watcher, root, logger)

	logger.Info("watching sketchbook for changes", "dir", root)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("sketchbook changed", "file", event.Name, "op", event.Op)

			if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == root {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Debug("cannot watch new directory", "dir", event.Name, "error", err)
					}
				}
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watcherDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				sketches, err := List(root, ext)
				if err != nil {
					logger.Error("re-listing sketchbook failed", "error", err)
				}
				emit(Changed{Root: root, Sketches: sketches, Err: err})
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("file watcher error", "error", err)
		}
	}
}

func addSubdirs(w *fsnotify.Watcher, root string, logger *slog.Logger) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if err := w.Add(dir); err != nil {
			logger.Debug("cannot watch directory", "dir", dir, "error", err)
		}
	}
}
