// Package translit implements the TransliterationSet of spec §4.2: a
// set of up to 10 configured input methods, each a deterministic
// automaton converting a typed key stream into a target-script string.
package translit

import "github.com/keyweave/inputcore/internal/logger"

var log = logger.New("translit")

// Method is the contract every input method satisfies (spec §4.2):
//
//	feed(key) -> (committed_chars, pending_context)
//	reset()
//	transliterate(token_sequence) -> string
//
// Transliterate must be a pure function of tokens — no hidden state
// carried across calls — so that cursor-edit preedit rebuilds are exact
// recomputations rather than incremental patches (spec §4.2 invariant).
type Method interface {
	// Name identifies the method, e.g. "NoIME" or "hi-itrans".
	Name() string
	// Feed consumes one raw key rune, returning any characters the
	// internal automaton commits immediately and the still-pending
	// context (e.g. a half-formed consonant cluster) for UI preview.
	Feed(key rune) (committed string, pending string)
	// Reset clears the automaton's internal state without affecting
	// any already-committed output.
	Reset()
	// Transliterate recomputes the full output for tokens from
	// scratch, ignoring whatever Feed has accumulated so far.
	Transliterate(tokens []rune) string
	// LetterClassifier returns the rune predicate the compose engine's
	// dead-key fallback should use while this method is active, so a
	// script this method targets folds correctly even when its letters
	// fall outside unicode.Ll/Lu (SPEC_FULL's per-input-method letter
	// classification supplement).
	LetterClassifier() func(rune) bool
}

// Set holds the input methods active for one Context (spec §4.2: "up
// to 10 configured input methods").
type Set struct {
	methods []Method
}

// NewSet builds a Set from already-constructed methods, capping at 10
// per spec §6's inputmethod option.
func NewSet(methods ...Method) *Set {
	if len(methods) > 10 {
		log.Warnf("truncating %d input methods to the 10-method maximum", len(methods))
		methods = methods[:10]
	}
	return &Set{methods: methods}
}

// Methods returns the active methods in configured priority order.
func (s *Set) Methods() []Method { return s.methods }

// FeedAll feeds key to every active method and returns their committed
// output keyed by method name, implementing the "TransliterationSet
// re-derives transliterated views" step of the per-keystroke data flow
// (spec §2).
func (s *Set) FeedAll(key rune) map[string]string {
	out := make(map[string]string, len(s.methods))
	for _, m := range s.methods {
		committed, _ := m.Feed(key)
		out[m.Name()] = committed
	}
	return out
}

// ResetAll clears every method's automaton state.
func (s *Set) ResetAll() {
	for _, m := range s.methods {
		m.Reset()
	}
}

// Views recomputes every method's view string for tokens from scratch,
// satisfying the "all views share the same token count" preedit
// invariant (spec §3) since every view is derived from the same tokens.
func (s *Set) Views(tokens []rune) map[string]string {
	out := make(map[string]string, len(s.methods))
	for _, m := range s.methods {
		out[m.Name()] = m.Transliterate(tokens)
	}
	return out
}
