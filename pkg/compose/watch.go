package compose

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store owns the active Trie and keeps it current with the system
// compose file (loaded first) layered under the user's overlay file
// (loaded second, reloaded on change), per spec §4.3/§6: "the system
// file is loaded first; the user overlay is loaded after and replaces
// or adds sequences; updates swap the trie atomically."
type Store struct {
	systemPath, userPath, locale, systemDir string
	active                                  atomic.Pointer[Trie]
	fsw                                     *fsnotify.Watcher
	onReload                                func(*Trie, []error)
}

// NewStore loads systemPath then userPath into one trie and starts
// watching userPath for changes. userPath may not exist yet; a missing
// overlay is not an error. systemPath may be empty to skip the system
// layer entirely.
func NewStore(systemPath, userPath, locale, systemDir string) (*Store, []error) {
	s := &Store{systemPath: systemPath, userPath: userPath, locale: locale, systemDir: systemDir}
	trie, errs := s.build()
	s.active.Store(trie)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("fsnotify unavailable, compose overlay hot-reload disabled: %v", err)
		return s, errs
	}
	s.fsw = fsw
	dir := filepath.Dir(userPath)
	if err := fsw.Add(dir); err != nil {
		log.Warnf("fsnotify could not watch %s: %v, compose overlay hot-reload disabled", dir, err)
		fsw.Close()
		s.fsw = nil
		return s, errs
	}
	go s.loop()
	return s, errs
}

func (s *Store) build() (*Trie, []error) {
	trie := NewTrie()
	var errs []error
	if s.systemPath != "" {
		errs = append(errs, loadFile(trie, s.systemPath, s.locale, s.systemDir, map[string]bool{})...)
	}
	if s.userPath != "" {
		errs = append(errs, loadFile(trie, s.userPath, s.locale, s.systemDir, map[string]bool{})...)
	}
	return trie, errs
}

// Active returns the currently live Trie.
func (s *Store) Active() *Trie { return s.active.Load() }

// OnReload registers a callback invoked after each successful overlay
// reload, with any parse errors encountered.
func (s *Store) OnReload(fn func(*Trie, []error)) { s.onReload = fn }

func (s *Store) loop() {
	for {
		select {
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != s.userPath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			trie, errs := s.build()
			s.active.Store(trie)
			if s.onReload != nil {
				s.onReload(trie, errs)
			}
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("compose overlay watch error: %v", err)
		}
	}
}

// Close stops the overlay watch.
func (s *Store) Close() error {
	if s.fsw == nil {
		return nil
	}
	return s.fsw.Close()
}
