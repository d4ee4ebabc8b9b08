// Package compose implements the ComposeEngine and ComposeTrie of spec
// §4.3: dead-key/compose sequence interpretation, dead-key and keypad
// fallback rules, and completion lookup over partial sequences.
package compose

import (
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/keyweave/inputcore/internal/logger"
)

var log = logger.New("compose")

// sequenceKey joins a key-sequence into the trie's prefix alphabet. Each
// keysym becomes one "segment"; segments are joined with a separator
// that cannot appear inside a keysym name so VisitSubtree boundaries
// always fall on whole-keysym edges, the same invariant the teacher's
// patricia-backed word trie relies on for whole-word boundaries
// (pkg/suggest/trie.go).
const sep = "\x1f"

func sequenceKey(keysyms []string) string {
	return strings.Join(keysyms, sep) + sep
}

func splitKey(key string) []string {
	trimmed := strings.TrimSuffix(key, sep)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, sep)
}

// Trie is an immutable-after-construction compose trie: a map from
// key-sequences to result strings, loaded from system and user compose
// files (spec §4.3, §6 "Compose file format").
type Trie struct {
	t *patricia.Trie
}

// entry is the patricia.Item stored at each leaf.
type entry struct {
	Result   string
	Symbolic bool
}

// NewTrie builds an empty trie.
func NewTrie() *Trie {
	return &Trie{t: patricia.NewTrie()}
}

// Insert adds or replaces the mapping for keysyms -> result. An empty
// result removes the sequence from the effective trie (spec §6: "empty
// result removes the sequence").
func (tr *Trie) Insert(keysyms []string, result string, symbolic bool) {
	key := patricia.Prefix(sequenceKey(keysyms))
	if result == "" {
		tr.t.Delete(key)
		return
	}
	tr.t.Set(key, entry{Result: result, Symbolic: symbolic})
}

// Lookup returns the result for an exact sequence and whether it exists.
func (tr *Trie) Lookup(keysyms []string) (string, bool) {
	item := tr.t.Get(patricia.Prefix(sequenceKey(keysyms)))
	if item == nil {
		return "", false
	}
	return item.(entry).Result, true
}

// HasContinuation reports whether any sequence extends the given prefix
// (the "live" / reachable-interior-node case of spec §4.3 step 3).
func (tr *Trie) HasContinuation(prefix []string) bool {
	found := false
	prefixKey := strings.Join(prefix, sep)
	if prefixKey != "" {
		prefixKey += sep
	}
	tr.t.VisitSubtree(patricia.Prefix(prefixKey), func(p patricia.Prefix, item patricia.Item) error {
		found = true
		return errStopWalk
	})
	return found
}

var errStopWalk = stopWalk{}

type stopWalk struct{}

func (stopWalk) Error() string { return "stop" }

// Completion is one enumerated leaf beneath a live prefix (spec §4.3
// "Completion lookup").
type Completion struct {
	Remaining []string // the keysyms still needed to reach this leaf
	Result    string
}

// Completions enumerates every leaf reachable from prefix whose
// remaining keysyms are all in availableKeysyms (the host's reported
// keyboard layout, spec §4.3). Results are tie-broken by the result's
// leading rune's Unicode category then lexicographically, per spec.
func (tr *Trie) Completions(prefix []string, availableKeysyms map[string]bool) []Completion {
	prefixKey := strings.Join(prefix, sep)
	if prefixKey != "" {
		prefixKey += sep
	}
	var out []Completion
	tr.t.VisitSubtree(patricia.Prefix(prefixKey), func(p patricia.Prefix, item patricia.Item) error {
		full := splitKey(string(p))
		remaining := full[len(prefix):]
		if availableKeysyms != nil {
			for _, k := range remaining {
				if !availableKeysyms[k] {
					return nil
				}
			}
		}
		out = append(out, Completion{Remaining: remaining, Result: item.(entry).Result})
		return nil
	})
	sortCompletions(out)
	return out
}

func sortCompletions(cs []Completion) {
	// insertion sort: completion lists are small (compose fallout, not
	// word-scale), and spec's tie-break is a simple comparator.
	for i := 1; i < len(cs); i++ {
		j := i
		for j > 0 && completionLess(cs[j], cs[j-1]) {
			cs[j], cs[j-1] = cs[j-1], cs[j]
			j--
		}
	}
}

func completionLess(a, b Completion) bool {
	ar, aok := firstRune(a.Result)
	br, bok := firstRune(b.Result)
	if aok && bok {
		ac, bc := runeCategoryRank(ar), runeCategoryRank(br)
		if ac != bc {
			return ac < bc
		}
	}
	return a.Result < b.Result
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}
