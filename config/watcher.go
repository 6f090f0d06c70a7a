package config

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/logger"
)

// ReloadCallback is invoked with the freshly loaded Config after a watched
// file changes.
type ReloadCallback func(*Config) error

// Watcher watches a config file for changes and debounces reload
// callbacks, mirroring am/watcher.go's ConfigWatcher -- generalized from
// QNTX's global single-watcher-plus-own-write-suppression design (it
// rewrites its own config file from the UI) to this agent's simpler
// read-only hot-reload, so the own-write suppression flag is dropped.
type Watcher struct {
	path           string
	watcher        *fsnotify.Watcher
	debouncePeriod time.Duration

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer
}

// NewWatcher creates a Watcher for the TOML file at path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: failed to create fsnotify watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "config: failed to watch config file %s", path)
	}
	return &Watcher{
		path:           path,
		watcher:        fw,
		debouncePeriod: 500 * time.Millisecond,
	}, nil
}

// OnReload registers a callback invoked after each debounced reload.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching for file changes on its own goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write == fsnotify.Write || ev.Op&fsnotify.Create == fsnotify.Create {
				if isBackupFile(ev.Name) {
					continue
				}
				logger.Infow("config: detected change", logger.FieldAddress, ev.Name)
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("config: watcher error", logger.FieldError, err.Error())
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debouncePeriod, func() {
		if err := w.reload(); err != nil {
			logger.Errorw("config: reload failed", logger.FieldError, err.Error())
		}
	})
}

func (w *Watcher) reload() error {
	Reset()
	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "config: failed to reload")
	}
	logger.Infow("config: reloaded", logger.FieldAddress, w.path)

	w.mu.Lock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			logger.Warnw("config: reload callback error", logger.FieldError, err.Error())
		}
	}
	return nil
}

func isBackupFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".toml.back1") ||
		strings.HasSuffix(base, ".toml.back2") ||
		strings.HasSuffix(base, ".toml.back3")
}
