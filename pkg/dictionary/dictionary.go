// Package dictionary implements the Dictionaries component of spec
// §4.5: per-locale spellchecker backends exposing lookup/spellcheck/
// suggest, loaded lazily and cached, with accent-insensitive prefix
// matching.
package dictionary

import (
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/keyweave/inputcore/internal/diacritics"
)

// Dictionary is the per-locale contract of spec §4.5.
type Dictionary interface {
	Locale() string
	Lookup(prefix string) []string
	Spellcheck(word string) bool
	Suggest(word string) []string
}

// LocaleDictionary adapts a chunked word-frequency trie (ChunkLoader) into
// the Dictionary contract, adding the accent-insensitive folding layer
// of spec §4.5 ("folds diacritics to a canonical form for prefix
// matching... the original-accented form is returned").
type LocaleDictionary struct {
	locale string
	loader *ChunkLoader
	fuzzy  *Matcher

	mu       sync.RWMutex
	foldTrie *patricia.Trie // folded-key -> []string of original accented forms
}

// folded is the patricia.Item stored in foldTrie.
type folded []string

// NewLocaleDictionary wraps loader for locale, building the
// accent-fold index over whatever words loader has loaded so far and
// registering a refresh callback so the index tracks loader's
// background chunk loading (loader.StartLazyLoading returns
// immediately; chunks land asynchronously after this constructor
// returns).
func NewLocaleDictionary(locale string, loader *ChunkLoader) *LocaleDictionary {
	d := &LocaleDictionary{locale: locale, loader: loader, foldTrie: patricia.NewTrie()}
	loader.SetOnChunkLoaded(d.RefreshFoldIndex)
	d.rebuildFoldIndex()
	return d
}

func (d *LocaleDictionary) rebuildFoldIndex() {
	freqs := d.loader.GetWordFreqs()

	foldTrie := patricia.NewTrie()
	for word := range freqs {
		key := patricia.Prefix(diacritics.FoldKey(word))
		if item := foldTrie.Get(key); item != nil {
			foldTrie.Set(key, append(item.(folded), word))
		} else {
			foldTrie.Set(key, folded{word})
		}
	}

	d.mu.Lock()
	d.foldTrie = foldTrie
	d.fuzzy = nil // stale: rebuilt lazily over the refreshed word set on next Suggest
	d.mu.Unlock()
}

// RefreshFoldIndex rebuilds the accent-fold index after the loader's
// loaded-chunk set changes (e.g. after LoadSpecificChunk/UnloadChunk).
func (d *LocaleDictionary) RefreshFoldIndex() { d.rebuildFoldIndex() }

func (d *LocaleDictionary) Locale() string { return d.locale }

// Lookup returns words starting with prefix, matched on the
// diacritic-folded form but returned in their original accented
// spelling (spec §4.5).
func (d *LocaleDictionary) Lookup(prefix string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	foldedPrefix := diacritics.FoldKey(prefix)
	var out []string
	d.foldTrie.VisitSubtree(patricia.Prefix(foldedPrefix), func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, item.(folded)...)
		return nil
	})
	return out
}

// Spellcheck reports whether word (folded) is a known dictionary
// entry.
func (d *LocaleDictionary) Spellcheck(word string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	item := d.foldTrie.Get(patricia.Prefix(diacritics.FoldKey(word)))
	return item != nil
}

// Suggest returns fuzzy-matched corrections for word, ranked by the
// Matcher's scoring (spec §4.5's "suggest(word) -> list of
// corrections").
func (d *LocaleDictionary) Suggest(word string) []string {
	if d.fuzzy == nil {
		d.mu.Lock()
		if d.fuzzy == nil {
			d.fuzzy = NewMatcher(d.loader.GetWordFreqs())
		}
		d.mu.Unlock()
	}
	return d.fuzzy.Suggest(word, 5)
}

// Set holds the Dictionaries loaded for the configured locales (spec
// §6's "dictionary" option, max 10), lazily instantiating each locale
// on first use and caching it thereafter.
type Set struct {
	mu       sync.Mutex
	locales  []string
	dirFor   func(locale string) string
	loaded   map[string]*LocaleDictionary
	chunkCap int // max words per locale, 0 = unlimited
}

// NewSet configures a Set over locales, using dirFor to resolve each
// locale's dictionary directory on first use.
func NewSet(locales []string, dirFor func(locale string) string) *Set {
	if len(locales) > 10 {
		log.Warnf("truncating %d dictionary locales to the 10-locale maximum", len(locales))
		locales = locales[:10]
	}
	return &Set{locales: locales, dirFor: dirFor, loaded: map[string]*LocaleDictionary{}}
}

// SetChunkCap bounds how many words each locale's ChunkLoader loads.
func (s *Set) SetChunkCap(words int) { s.chunkCap = words }

// Get returns the Dictionary for locale, loading it lazily on first
// call (spec §4.5: "loaded lazily on first use and cached").
func (s *Set) Get(locale string) (*LocaleDictionary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.loaded[locale]; ok {
		return d, nil
	}

	dir := s.dirFor(locale)
	loader := NewChunkLoader(dir, 0, s.chunkCap)
	// Wrap the loader (which registers the fold-index refresh callback)
	// before starting the async load, so no chunk can land before the
	// callback is in place.
	d := NewLocaleDictionary(locale, loader)
	if err := loader.StartLazyLoading(); err != nil {
		return nil, err
	}
	s.loaded[locale] = d
	return d, nil
}

// Locales returns the configured locale list in priority order.
func (s *Set) Locales() []string { return s.locales }

// LookupAll queries every configured locale and concatenates results
// in locale priority order, used by CandidateEngine step 2 (spec §4.7).
func (s *Set) LookupAll(prefix string) []string {
	var out []string
	for _, locale := range s.locales {
		d, err := s.Get(locale)
		if err != nil {
			log.Warnf("dictionary: locale %s unavailable: %v", locale, err)
			continue
		}
		out = append(out, d.Lookup(prefix)...)
	}
	return out
}

// SpellcheckAny reports whether word validates against any configured
// locale, used to back UserDB's RecordCorrect/RecordCorrectOrPrevious
// record modes (spec §4.4).
func (s *Set) SpellcheckAny(word string) bool {
	for _, locale := range s.locales {
		d, err := s.Get(locale)
		if err != nil {
			continue
		}
		if d.Spellcheck(word) {
			return true
		}
	}
	return false
}

// SuggestAll queries every configured locale's spell-corrections.
func (s *Set) SuggestAll(word string) []string {
	var out []string
	for _, locale := range s.locales {
		d, err := s.Get(locale)
		if err != nil {
			continue
		}
		out = append(out, d.Suggest(word)...)
	}
	return out
}
