// Package emoji implements the EmojiIndex of spec §4.6: an inverted
// keyword index over bundled emoji data, fuzzy per-token scoring,
// Unicode code-point lookup, and a `related` query.
package emoji

import (
	"strings"

	"github.com/mozillazg/go-pinyin"

	"github.com/keyweave/inputcore/internal/diacritics"
	"github.com/keyweave/inputcore/internal/logger"
)

var log = logger.New("emoji")

// Entry mirrors spec §3's EmojiEntry.
type Entry struct {
	Sequence string   // the emoji's codepoint sequence as a string
	Name     string   // canonical CLDR/Unicode name
	Keywords []string // normalized keyword tokens
	Category string
	// Variants lists the codepoint sequences of this entry's
	// skin-tone/gender siblings, the base form included (SPEC_FULL
	// supplemented feature #1). Empty when the bundled data declares
	// no variant family for this emoji.
	Variants []string
}

// normalize implements spec §4.6's token normalization: lowercase,
// split on whitespace/underscore, fold diacritics.
func normalize(s string) []string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, diacritics.FoldKey(f))
	}
	return out
}

// Index is the built inverted keyword index.
type Index struct {
	entries      []Entry
	keywordIndex map[string][]int // normalized keyword -> entry indexes
	byCodepoint  map[rune]int     // single-rune entries -> entry index
	bySequence   map[string]int   // full codepoint sequence -> entry index
	triggerChar  string
	romanize     bool
}

// Option configures an Index at build time.
type Option func(*Index)

// WithTriggerChar sets the emoji trigger character (spec §6
// "emojitriggercharacters", default "_").
func WithTriggerChar(c string) Option {
	return func(idx *Index) { idx.triggerChar = c }
}

// WithRomanization enables the romanization keyword expansion pass
// (spec §4.6 "Optional romanization expansion"): Han text gains pinyin
// keywords; kana text is not romanized.
func WithRomanization(enabled bool) Option {
	return func(idx *Index) { idx.romanize = enabled }
}

// Build constructs an Index from a flat entry list, applying
// romanization expansion if enabled.
func Build(entries []Entry, opts ...Option) *Index {
	idx := &Index{
		entries:      entries,
		keywordIndex: map[string][]int{},
		byCodepoint:  map[rune]int{},
		bySequence:   map[string]int{},
		triggerChar:  "_",
	}
	for _, opt := range opts {
		opt(idx)
	}

	for i, e := range entries {
		keys := map[string]bool{}
		for _, k := range e.Keywords {
			for _, tok := range normalize(k) {
				keys[tok] = true
			}
		}
		for _, tok := range normalize(e.Name) {
			keys[tok] = true
		}
		if idx.romanize {
			for _, tok := range romanizeKeywords(e.Name, e.Keywords) {
				keys[tok] = true
			}
		}
		for k := range keys {
			idx.keywordIndex[k] = append(idx.keywordIndex[k], i)
		}

		if r, ok := singleRune(e.Sequence); ok {
			idx.byCodepoint[r] = i
		}
		idx.bySequence[e.Sequence] = i
	}
	log.Infof("built emoji index: %d entries, %d keywords", len(entries), len(idx.keywordIndex))
	return idx
}

func singleRune(seq string) (rune, bool) {
	runes := []rune(seq)
	if len(runes) != 1 {
		return 0, false
	}
	return runes[0], true
}

// romanizeKeywords appends pinyin keywords for every name/keyword string
// that contains a CJK Unified Ideograph (U+4E00-U+9FFF) (spec §4.6).
// Hiragana/katakana text gets no romaji keywords: a string with kana
// but no Han character is skipped.
func romanizeKeywords(name string, keywords []string) []string {
	var out []string
	args := pinyin.NewArgs()
	for _, s := range append([]string{name}, keywords...) {
		if !containsHan(s) {
			continue
		}
		for _, py := range pinyin.Pinyin(s, args) {
			out = append(out, py...)
		}
	}
	return out
}

func containsHan(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
