package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultReloadDebounce collapses the burst of events an editor save produces.
const defaultReloadDebounce = 250 * time.Millisecond

// ConfigWatcher calls onChange after any of a set of config files changes.
// Parent directories are watched so files replaced by rename are still seen.
type ConfigWatcher struct {
	files    map[string]bool
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	onChange func()
	debounce time.Duration

	pendingMu sync.Mutex
	pending   bool

	done chan struct{}
}

// NewConfigWatcher creates a watcher for files.
func NewConfigWatcher(files []string, logger *slog.Logger, onChange func()) (*ConfigWatcher, error) {
	if len(files) == 0 {
		return nil, errors.New("no config files to watch")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(files))
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		set[filepath.Clean(f)] = true
	}

	return &ConfigWatcher{
		files:    set,
		watcher:  fsw,
		logger:   logger,
		onChange: onChange,
		debounce: defaultReloadDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Start adds the watches and begins processing events until ctx is done
// or Stop is called.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.logger.Debug("Watching config directory", "path", dir)
	}

	go w.processEvents(ctx)

	w.logger.Info("Config watcher started", "files", len(w.files))
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *ConfigWatcher) Stop() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// processEvents handles fsnotify events with debouncing.
func (w *ConfigWatcher) processEvents(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *ConfigWatcher) handleFSEvent(event fsnotify.Event) {
	if !w.files[filepath.Clean(event.Name)] {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("Config change detected", "path", event.Name, "op", event.Op.String())
}

func (w *ConfigWatcher) flushPending() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if pending {
		w.onChange()
	}
}
