// Package watcher reports settled changes below a set of directory trees so
// a comparison can be repeated when either side changes.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FSNotifyWatcher watches every directory below its roots with fsnotify and
// debounces the raw events into batches.
type FSNotifyWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	errorChan chan error
	logger    zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once

	mu           sync.Mutex
	watchedPaths map[string]bool
}

// NewFSNotifyWatcher creates a new fsnotify-based watcher
func NewFSNotifyWatcher(config Config, logger zerolog.Logger) (*FSNotifyWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	config = config.withDefaults()
	return &FSNotifyWatcher{
		watcher:      fsWatcher,
		debouncer:    NewDebouncer(config.Debounce, config.MaxDelay, config.QueueCapacity),
		errorChan:    make(chan error, 10),
		logger:       logger,
		watchedPaths: make(map[string]bool),
	}, nil
}

// Start adds every directory below roots and begins forwarding events.
// Failing to watch a root is an error; failing on a subdirectory is logged.
func (w *FSNotifyWatcher) Start(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.watcher.Add(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		w.addPathRecursive(root)
	}

	w.wg.Add(1)
	go w.watchLoop(ctx)

	w.logger.Debug().Strs("roots", roots).Int("directories", len(w.WatchedPaths())).Msg("Watcher started")
	return nil
}

// Batches returns settled change batches. The channel is closed by Close.
func (w *FSNotifyWatcher) Batches() <-chan Batch {
	return w.debouncer.Batches()
}

// Errors returns watch errors reported by the backend.
func (w *FSNotifyWatcher) Errors() <-chan error {
	return w.errorChan
}

// WatchedPaths returns the directories currently registered, sorted.
func (w *FSNotifyWatcher) WatchedPaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.watchedPaths))
	for p := range w.watchedPaths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Close stops watching and cleans up resources
func (w *FSNotifyWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
		w.wg.Wait()
		w.debouncer.Close()
		close(w.errorChan)
	})
	return err
}

// addPathRecursive registers path and all its subdirectories
func (w *FSNotifyWatcher) addPathRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug().Err(err).Str("path", path).Msg("Skipping unreadable directory")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("Failed to add subdirectory to watcher")
			return nil
		}
		w.mu.Lock()
		w.watchedPaths[path] = true
		w.mu.Unlock()
		return nil
	})
}

func (w *FSNotifyWatcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			ev, ok := convertEvent(event)
			if !ok {
				continue
			}
			switch ev.Type {
			case EventCreate:
				// New directories must be registered before their contents change.
				w.addPathRecursive(ev.Path)
			case EventRemove, EventRename:
				w.mu.Lock()
				delete(w.watchedPaths, ev.Path)
				w.mu.Unlock()
			}
			w.debouncer.Add(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errorChan <- err:
			default:
				w.logger.Warn().Err(err).Msg("Error channel full, dropping error")
			}
		}
	}
}

func convertEvent(event fsnotify.Event) (Event, bool) {
	var eventType EventType

	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventWrite
	case event.Has(fsnotify.Remove):
		eventType = EventRemove
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	case event.Has(fsnotify.Chmod):
		eventType = EventChmod
	default:
		return Event{}, false
	}

	return Event{Type: eventType, Path: event.Name, Timestamp: time.Now()}, true
}

// Watch starts a watcher on roots and calls onChange once per settled batch
// until ctx is done. onChange runs on the calling goroutine, so batches that
// arrive meanwhile are coalesced by the debouncer.
func Watch(ctx context.Context, config Config, logger zerolog.Logger, roots []string, onChange func(context.Context, Batch)) error {
	w, err := NewFSNotifyWatcher(config, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(ctx, roots); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			logger.Debug().Int("events", len(batch.Events)).Strs("paths", batch.Paths()).Msg("Change detected")
			onChange(ctx, batch)
		case err, ok := <-w.Errors():
			if ok {
				logger.Warn().Err(err).Msg("Watcher error")
			}
		}
	}
}
