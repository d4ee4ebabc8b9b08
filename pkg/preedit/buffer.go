// Package preedit implements the Preedit buffer and PreeditController
// state machine of spec §3/§4.8.
package preedit

import (
	"github.com/keyweave/inputcore/pkg/translit"
)

// Token is one typed key recorded in the Preedit (spec §3: "each token
// records its raw key").
type Token struct {
	Raw rune
}

// Buffer is spec §3's Preedit: an ordered token sequence plus a
// token-granularity cursor, exposing a canonical string and one view
// string per active transliteration method. Invariant: every view is
// derived from the same token sequence and therefore shares the same
// token count, satisfying "all views share the same token count and
// cursor index" by construction rather than by separate bookkeeping.
type Buffer struct {
	tokens    []Token
	cursor    int
	methods   *translit.Set
	canonical string // name of the method whose view is canonical
}

// NewBuffer builds an empty Preedit driven by methods. canonicalMethod
// names which method's view is the canonical string; if empty or
// unknown, the first configured method is used.
func NewBuffer(methods *translit.Set, canonicalMethod string) *Buffer {
	if canonicalMethod == "" {
		if ms := methods.Methods(); len(ms) > 0 {
			canonicalMethod = ms[0].Name()
		}
	}
	return &Buffer{methods: methods, canonical: canonicalMethod}
}

// Empty reports whether the buffer holds no tokens.
func (b *Buffer) Empty() bool { return len(b.tokens) == 0 }

// Len returns the token count.
func (b *Buffer) Len() int { return len(b.tokens) }

// Cursor returns the current token-granularity cursor index.
func (b *Buffer) Cursor() int { return b.cursor }

// Insert appends raw at the cursor position, shifting any tokens after
// it, and advances the cursor past the new token.
func (b *Buffer) Insert(raw rune) {
	tok := Token{Raw: raw}
	b.tokens = append(b.tokens, Token{})
	copy(b.tokens[b.cursor+1:], b.tokens[b.cursor:])
	b.tokens[b.cursor] = tok
	b.cursor++
}

// PeekBefore returns the token immediately before the cursor, if any,
// without removing it. Used by the controller's undo log to record
// what a Backspace is about to remove.
func (b *Buffer) PeekBefore() (Token, bool) {
	if b.cursor == 0 {
		return Token{}, false
	}
	return b.tokens[b.cursor-1], true
}

// Backspace removes the token immediately before the cursor, if any,
// returning whether a token was removed.
func (b *Buffer) Backspace() bool {
	if b.cursor == 0 {
		return false
	}
	b.tokens = append(b.tokens[:b.cursor-1], b.tokens[b.cursor:]...)
	b.cursor--
	return true
}

// Delete removes the token immediately after the cursor, if any.
func (b *Buffer) Delete() bool {
	if b.cursor >= len(b.tokens) {
		return false
	}
	b.tokens = append(b.tokens[:b.cursor], b.tokens[b.cursor+1:]...)
	return true
}

// CursorLeft moves the cursor one token left, reporting whether it was
// already at the left edge (spec §4.8: "if moves past an edge,
// optionally auto-commit... or delegate the key to the host").
func (b *Buffer) CursorLeft() (atEdge bool) {
	if b.cursor == 0 {
		return true
	}
	b.cursor--
	return false
}

// CursorRight moves the cursor one token right, reporting whether it
// was already at the right edge.
func (b *Buffer) CursorRight() (atEdge bool) {
	if b.cursor >= len(b.tokens) {
		return true
	}
	b.cursor++
	return false
}

// raws returns the raw key sequence, used to feed every transliteration
// method's pure Transliterate recomputation.
func (b *Buffer) raws() []rune {
	out := make([]rune, len(b.tokens))
	for i, t := range b.tokens {
		out[i] = t.Raw
	}
	return out
}

// Views returns the per-method transliterated view strings (spec
// §4.2), recomputed from scratch on every call per the pure-function
// invariant.
func (b *Buffer) Views() map[string]string {
	return b.methods.Views(b.raws())
}

// Canonical returns the canonical view string (spec §3: "the
// transliteration chosen by priority").
func (b *Buffer) Canonical() string {
	views := b.Views()
	if s, ok := views[b.canonical]; ok {
		return s
	}
	// Fall back to the raw key sequence if the canonical method is
	// somehow unconfigured — never silently return an empty preedit.
	return string(b.raws())
}

// Reset clears the buffer back to empty (spec §4.8's Empty state).
func (b *Buffer) Reset() {
	b.tokens = nil
	b.cursor = 0
	b.methods.ResetAll()
}
