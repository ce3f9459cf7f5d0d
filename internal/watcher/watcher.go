// Package watcher watches the global Bong directory for settings changes.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/bongapp/bong/internal/config"
)

// DefaultDebounce collapses bursts of writes to the same file.
const DefaultDebounce = 200 * time.Millisecond

// EventType represents the type of file system event.
type EventType int

// Event types for file system changes.
const (
	EventSettingsChanged EventType = iota
	EventSettingsRemoved
)

// Event represents a file system change event.
type Event struct {
	Type EventType
	Path string
}

// Watcher watches for file system changes relevant to Bong.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger
	delay      time.Duration
	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

// New creates a new file system watcher.
func New(logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 16),
		done:       make(chan struct{}),
		logger:     logger,
		delay:      DefaultDebounce,
		debounce:   make(map[string]*time.Timer),
	}, nil
}

// Open creates a watcher and starts it. A watcher that fails to start is
// stopped before the error is returned.
func Open(logger *zap.Logger) (*Watcher, error) {
	w, err := New(logger)
	if err != nil {
		return nil, err
	}
	if err := w.startOrStop(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Watcher) startOrStop() error {
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}
	return nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start watches the global directory, creating it when missing.
func (w *Watcher) Start() error {
	if err := config.EnsureGlobalDir(); err != nil {
		return err
	}
	globalDir, err := config.GlobalDir()
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(globalDir); err != nil {
		return err
	}

	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.debounceMu.Lock()
		for path, timer := range w.debounce {
			timer.Stop()
			delete(w.debounce, path)
		}
		w.debounceMu.Unlock()
	})
}

// processEvents processes file system events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != config.SettingsFileName {
		return
	}

	// Settings are saved as write-temp-then-rename, which shows up as Create
	// or Rename on the target.
	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		w.debounceEvent(event.Name, Event{Type: EventSettingsChanged, Path: event.Name})
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.debounceEvent(event.Name, Event{Type: EventSettingsRemoved, Path: event.Name})
	}
}

// debounceEvent debounces events for the same path. The last event wins.
func (w *Watcher) debounceEvent(path string, ev Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}

	w.debounce[path] = time.AfterFunc(w.delay, func() {
		w.debounceMu.Lock()
		delete(w.debounce, path)
		w.debounceMu.Unlock()

		// A rename that is followed by the file reappearing is a save.
		if ev.Type == EventSettingsRemoved && config.FileExists(path) {
			ev.Type = EventSettingsChanged
		}

		select {
		case w.eventsChan <- ev:
		case <-w.done:
		}
	})
}
