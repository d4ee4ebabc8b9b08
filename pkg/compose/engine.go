package compose

import (
	"github.com/keyweave/inputcore/internal/diacritics"
)

// State is the result of feeding one key to the Engine (spec §3
// ComposeState: live / resolved / undefined).
type State int

const (
	StateLive     State = iota // reachable interior node; preview the prefix
	StateResolved              // leaf reached; Result holds the emitted text
	StateError                 // no extension possible and no fallback applied
)

// Outcome is returned by Engine.Feed.
type Outcome struct {
	State  State
	Result string // valid when State == StateResolved
}

// keypadToNormal maps a keypad keysym to its normal-key counterpart;
// normalToKeypad is the reverse mapping (spec §4.3b).
var keypadToNormal = map[string]string{
	"KP_0": "0", "KP_1": "1", "KP_2": "2", "KP_3": "3", "KP_4": "4",
	"KP_5": "5", "KP_6": "6", "KP_7": "7", "KP_8": "8", "KP_9": "9",
	"KP_Divide": "slash", "KP_Multiply": "asterisk", "KP_Subtract": "minus",
	"KP_Add": "plus", "KP_Decimal": "period", "KP_Separator": "comma",
}

var normalToKeypad = invert(keypadToNormal)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Engine owns one live ComposeState (a prefix into a Trie) and applies
// the fallback rules of spec §4.3 when no continuation exists.
type Engine struct {
	trie   *Trie
	prefix []string
	// letterClassifier lets an active TransliterationSet override the
	// default diacritics.IsLetter (Ll/Lu) check used by dead-key fallback, per
	// SPEC_FULL's script-aware letter classification supplement.
	letterClassifier func(rune) bool
}

// NewEngine creates a ComposeEngine bound to trie. trie may be swapped
// later via SetTrie (atomic overlay reload, spec §4.3).
func NewEngine(trie *Trie) *Engine {
	return &Engine{trie: trie, letterClassifier: diacritics.IsLetter}
}

// SetTrie atomically swaps the active trie, e.g. after the user overlay
// compose file is reloaded.
func (e *Engine) SetTrie(trie *Trie) { e.trie = trie }

// SetLetterClassifier overrides the letter test used by dead-key
// fallback; pkg/engine's Engine.syncLetterClassifier wires this to the
// active input method's LetterClassifier (SPEC_FULL supplement #3).
func (e *Engine) SetLetterClassifier(fn func(rune) bool) {
	if fn == nil {
		fn = diacritics.IsLetter
	}
	e.letterClassifier = fn
}

// InProgress reports whether a compose sequence is currently live.
func (e *Engine) InProgress() bool { return len(e.prefix) > 0 }

// Prefix returns the keysyms consumed so far (for UI preview).
func (e *Engine) Prefix() []string { return append([]string(nil), e.prefix...) }

// Reset clears the in-progress state without emitting anything.
func (e *Engine) Reset() { e.prefix = nil }

// Feed appends keysym to the current prefix and resolves it per spec
// §4.3 steps 1-4. keyRune is the character the key would otherwise
// produce, used by the dead-key fallback.
func (e *Engine) Feed(keysym string, keyRune rune) Outcome {
	extended := append(append([]string(nil), e.prefix...), keysym)

	if result, ok := e.trie.Lookup(extended); ok {
		e.prefix = nil
		return Outcome{State: StateResolved, Result: result}
	}
	if e.trie.HasContinuation(extended) {
		e.prefix = extended
		return Outcome{State: StateLive}
	}

	if out, ok := e.deadKeyFallback(extended, keyRune); ok {
		e.prefix = nil
		return out
	}
	if out, ok := e.keypadFallback(keysym, keyRune); ok {
		return out
	}

	// (c) reject the last key only; keep the valid prefix.
	log.Debugf("compose: no continuation for %v, discarding last key", extended)
	return Outcome{State: StateError}
}

// deadKeyFallback implements spec §4.3a: base letter + reversed
// combining marks, NFC-normalized.
func (e *Engine) deadKeyFallback(seq []string, final rune) (Outcome, bool) {
	if len(seq) == 0 {
		return Outcome{}, false
	}
	deadRun := seq[:len(seq)-1]
	for _, k := range deadRun {
		if !diacritics.IsDeadKey(k) {
			return Outcome{}, false
		}
	}
	if len(deadRun) == 0 {
		return Outcome{}, false
	}
	if !e.letterClassifier(final) {
		return Outcome{}, false
	}
	keys := make([]diacritics.DeadKey, len(deadRun))
	for i, k := range deadRun {
		keys[i] = diacritics.DeadKey(k)
	}
	result := diacritics.ComposeFallback(final, keys)
	return Outcome{State: StateResolved, Result: result}, true
}

// keypadFallback implements spec §4.3b: substitute the keypad variant
// for its normal counterpart (or vice versa) and re-attempt resolution.
func (e *Engine) keypadFallback(keysym string, keyRune rune) (Outcome, bool) {
	var substitute string
	if alt, ok := keypadToNormal[keysym]; ok {
		substitute = alt
	} else if alt, ok := normalToKeypad[keysym]; ok {
		substitute = alt
	} else {
		return Outcome{}, false
	}

	extended := append(append([]string(nil), e.prefix...), substitute)
	if result, ok := e.trie.Lookup(extended); ok {
		e.prefix = nil
		return Outcome{State: StateResolved, Result: result}, true
	}
	if e.trie.HasContinuation(extended) {
		e.prefix = extended
		return Outcome{State: StateLive}, true
	}
	return Outcome{}, false
}

// Backspace removes the last keysym from an in-progress sequence,
// returning true if a sequence is still in progress afterward.
func (e *Engine) Backspace() bool {
	if len(e.prefix) == 0 {
		return false
	}
	e.prefix = e.prefix[:len(e.prefix)-1]
	return len(e.prefix) > 0
}

// Completions delegates to the trie for the currently live prefix.
func (e *Engine) Completions(availableKeysyms map[string]bool) []Completion {
	return e.trie.Completions(e.prefix, availableKeysyms)
}
