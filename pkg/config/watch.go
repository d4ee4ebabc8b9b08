package config

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher publishes a new immutable Config snapshot whenever the backing
// file changes, satisfying spec §5's "Configuration: a single
// version-stamped struct; when the setup tool updates it, a new version
// is published; event loop picks it up between events."
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
	fsw     *fsnotify.Watcher
	onLoad  func(*Config)
}

// NewWatcher starts watching path for changes, with initial already loaded.
func NewWatcher(path string, initial *Config) (*Watcher, error) {
	w := &Watcher{path: path}
	w.current.Store(initial)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("fsnotify unavailable, config hot-reload disabled: %v", err)
		return w, nil
	}
	w.fsw = fsw
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		log.Warnf("fsnotify could not watch %s: %v, hot-reload disabled", filepath.Dir(path), err)
		fsw.Close()
		w.fsw = nil
		return w, nil
	}
	go w.loop()
	return w, nil
}

// Current returns the latest published snapshot. Safe for concurrent use
// by any number of readers without locking (spec §5, UserDB/Config:
// "reads use a snapshot isolation level").
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// OnLoad registers a callback invoked after each successful reload. The
// callback must not block — it runs on the watcher's goroutine, not the
// event loop.
func (w *Watcher) OnLoad(fn func(*Config)) {
	w.onLoad = fn
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Warnf("config reload from %s failed, keeping previous snapshot: %v", w.path, err)
		return
	}
	prev := w.current.Load()
	cfg.version = prev.Version() + 1
	w.current.Store(cfg)
	log.Debugf("config reloaded, version %d", cfg.version)
	if w.onLoad != nil {
		w.onLoad(cfg)
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}
