package checks

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
)

// ReloadCallback receives the freshly parsed definitions after a change.
type ReloadCallback func([]Definition)

// Watcher reloads a checks file when it changes on disk. A file that fails
// to parse is logged and the previous definitions stay in effect.
type Watcher struct {
	path           string
	watcher        *fsnotify.Watcher
	onReload       ReloadCallback
	debouncePeriod time.Duration
	logger         *zap.SugaredLogger

	mu            sync.Mutex
	debounceTimer *time.Timer
	started       bool
	done          chan struct{}
}

// NewWatcher watches the directory holding path, since editors often replace
// files instead of writing them in place.
func NewWatcher(path string, onReload ReloadCallback) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "failed to resolve checks path")
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	return &Watcher{
		path:           abs,
		watcher:        fw,
		onReload:       onReload,
		debouncePeriod: 500 * time.Millisecond,
		logger:         logger.ComponentLogger("checks.watcher"),
		done:           make(chan struct{}),
	}, nil
}

// Start begins watching for changes
func (w *Watcher) Start() {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Infow("Checks file changed", logger.FieldFile, event.Name, "op", event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Checks watcher error", logger.FieldError, err)
		}
	}
}

// scheduleReload debounces bursts of events from a single save
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.reload)
}

func (w *Watcher) reload() {
	defs, err := Load(w.path)
	if err != nil {
		w.logger.Errorw("Checks reload failed, keeping previous definitions",
			logger.FieldFile, w.path, logger.FieldError, err)
		return
	}

	w.logger.Infow("Checks reloaded", logger.FieldFile, w.path, logger.FieldCount, len(defs))
	if w.onReload != nil {
		w.onReload(defs)
	}
}

// Stop stops watching and waits for the event loop to exit
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	started := w.started
	w.mu.Unlock()

	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}
