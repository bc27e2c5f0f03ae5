// Package watcher reports files created or modified in a directory so the
// client can push them as they appear.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce coalesces bursts of events on one path.
const DefaultDebounce = 500 * time.Millisecond

type pendingEvent struct {
	timer     *time.Timer
	eventType EventType
}

// Watcher monitors a directory for file system changes.
type Watcher struct {
	watchPath     string
	filterConfig  FilterConfig
	events        chan FileEvent
	errors        chan error
	fsWatcher     *fsnotify.Watcher
	debounceMap   map[string]*pendingEvent
	debounceMu    sync.Mutex
	debounceDelay time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

// New creates a watcher for watchPath. Nothing is observed until Start.
func New(watchPath string, filterConfig FilterConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watchPath:     watchPath,
		filterConfig:  filterConfig,
		events:        make(chan FileEvent, 100),
		errors:        make(chan error, 10),
		fsWatcher:     fsWatcher,
		debounceMap:   make(map[string]*pendingEvent),
		debounceDelay: DefaultDebounce,
	}, nil
}

// SetDebounce changes the debounce delay. Call it before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounceDelay = d
}

// Start begins watching. Cancelling ctx stops event delivery; call Stop to
// release resources.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsWatcher.Add(w.watchPath); err != nil {
		return err
	}
	if w.filterConfig.WatchSubdirectories {
		if err := w.addSubdirectories(w.watchPath); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Start",
				"path":     w.watchPath,
				"error":    err.Error(),
			}).Warn("Failed to add some subdirectories")
		}
	}

	w.ctx, w.cancel = context.WithCancel(ctx)

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"path":     w.watchPath,
	}).Info("File watcher started")

	w.wg.Add(2)
	go w.eventLoop()
	go w.errorLoop()
	return nil
}

// Stop stops the watcher and closes the Events and Errors channels.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.fsWatcher.Close()
		w.wg.Wait()

		w.debounceMu.Lock()
		for _, pending := range w.debounceMap {
			pending.timer.Stop()
		}
		w.debounceMap = nil
		w.debounceMu.Unlock()

		close(w.events)
		close(w.errors)

		logrus.WithFields(logrus.Fields{
			"function": "Stop",
			"path":     w.watchPath,
		}).Info("File watcher stopped")
	})
}

// Events returns the channel of debounced file events.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		}
	}
}

func (w *Watcher) errorLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				logrus.WithFields(logrus.Fields{
					"function": "errorLoop",
					"error":    err.Error(),
				}).Error("Error channel full, dropping error")
			}
		}
	}
}

// handleEvent maps one fsnotify event onto a FileEvent.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.filterConfig.ShouldProcess(event.Name) {
		return
	}

	var eventType EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
		if w.filterConfig.WatchSubdirectories {
			// only directories need an explicit watch; errors for files are expected
			_ = w.fsWatcher.Add(event.Name)
		}
	case event.Has(fsnotify.Write):
		eventType = EventWrite
	case event.Has(fsnotify.Remove):
		eventType = EventRemove
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	default:
		return
	}
	w.debounceEvent(eventType, event.Name)
}

// debounceEvent emits an event once filePath has been quiet for the
// debounce delay. A create followed by writes is reported as a create.
func (w *Watcher) debounceEvent(eventType EventType, filePath string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceMap == nil {
		return
	}
	if pending, exists := w.debounceMap[filePath]; exists {
		pending.timer.Stop()
		if pending.eventType == EventCreate && eventType == EventWrite {
			eventType = EventCreate
		}
	}

	timer := time.AfterFunc(w.debounceDelay, func() {
		w.debounceMu.Lock()
		defer w.debounceMu.Unlock()
		if w.debounceMap == nil {
			return
		}
		delete(w.debounceMap, filePath)

		fileEvent := FileEvent{
			Type:      eventType,
			Path:      filePath,
			Timestamp: time.Now(),
		}
		select {
		case w.events <- fileEvent:
		default:
			logrus.WithFields(logrus.Fields{
				"function": "debounceEvent",
				"path":     filePath,
			}).Warn("Events channel full, dropping event")
		}
	})
	w.debounceMap[filePath] = &pendingEvent{timer: timer, eventType: eventType}
}

// addSubdirectories adds every directory under rootPath to the watch list.
func (w *Watcher) addSubdirectories(rootPath string) error {
	var errs []error
	walkErr := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() && path != rootPath {
			if err := w.fsWatcher.Add(path); err != nil {
				errs = append(errs, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return errors.Join(errs...)
}
