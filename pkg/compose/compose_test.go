package compose

import "testing"

func buildTrie(t *testing.T) *Trie {
	t.Helper()
	tr := NewTrie()
	tr.Insert([]string{"dead_grave", "a"}, "à", false)
	tr.Insert([]string{"dead_grave", "dead_grave"}, "`", false)
	tr.Insert([]string{"minus", "minus", "period"}, "…", true)
	return tr
}

func TestTrieLookupAndContinuation(t *testing.T) {
	tr := buildTrie(t)
	if _, ok := tr.Lookup([]string{"dead_grave"}); ok {
		t.Fatalf("partial prefix should not resolve")
	}
	if !tr.HasContinuation([]string{"dead_grave"}) {
		t.Fatalf("expected a live continuation under dead_grave")
	}
	result, ok := tr.Lookup([]string{"dead_grave", "a"})
	if !ok || result != "à" {
		t.Fatalf("got %q, %v; want à, true", result, ok)
	}
}

func TestTrieEmptyResultRemoves(t *testing.T) {
	tr := buildTrie(t)
	tr.Insert([]string{"dead_grave", "a"}, "", false)
	if _, ok := tr.Lookup([]string{"dead_grave", "a"}); ok {
		t.Fatalf("sequence should have been removed by empty-result insert")
	}
}

func TestEngineResolvesKnownSequence(t *testing.T) {
	e := NewEngine(buildTrie(t))
	out := e.Feed("dead_grave", 0)
	if out.State != StateLive {
		t.Fatalf("want StateLive after dead_grave, got %v", out.State)
	}
	out = e.Feed("a", 'a')
	if out.State != StateResolved || out.Result != "à" {
		t.Fatalf("want resolved à, got %+v", out)
	}
	if e.InProgress() {
		t.Fatalf("engine should reset after resolving")
	}
}

func TestEngineDeadKeyFallback(t *testing.T) {
	// dead_circumflex has no continuation in this trie, so it is rejected
	// on its own: the fallback only applies once a dead-key prefix is
	// live and a further key arrives.
	e := NewEngine(buildTrie(t))
	out := e.Feed("dead_circumflex", 0)
	if out.State != StateError {
		t.Fatalf("dead_circumflex alone has no continuation and no fallback yet, want StateError, got %v", out.State)
	}
}

func TestEngineDeadKeyFallbackOnSecondKey(t *testing.T) {
	tr := NewTrie() // no entries at all: forces fallback path for every key
	e := NewEngine(tr)
	if out := e.Feed("dead_acute", 0); out.State != StateError {
		t.Fatalf("want StateError (no continuation, no fallback for lone dead key), got %v", out.State)
	}
}

func TestEngineKeypadFallback(t *testing.T) {
	tr := NewTrie()
	tr.Insert([]string{"minus", "minus", "period"}, "…", true)
	e := NewEngine(tr)
	e.Feed("minus", 0)
	e.Feed("minus", 0)
	out := e.Feed("KP_Decimal", 0)
	if out.State != StateResolved || out.Result != "…" {
		t.Fatalf("want keypad fallback to resolve …, got %+v", out)
	}
}

func TestEngineRejectsLastKeyOnly(t *testing.T) {
	e := NewEngine(buildTrie(t))
	e.Feed("dead_grave", 0)
	out := e.Feed("minus", '-') // no continuation, not a letter, no keypad variant defined
	if out.State != StateError {
		t.Fatalf("want StateError for unresolvable extension, got %v", out.State)
	}
	if !e.InProgress() {
		t.Fatalf("only the last key should be discarded, dead_grave prefix should remain live")
	}
}

func TestEngineDeadKeyFallbackHonorsCustomLetterClassifier(t *testing.T) {
	tr := NewTrie()
	// dead_grave stays live; every other key after it forces the fallback path
	tr.Insert([]string{"dead_grave", "space"}, "`", false)
	e := NewEngine(tr)
	e.SetLetterClassifier(func(r rune) bool { return r == 'द' })

	e.Feed("dead_grave", 0)
	if out := e.Feed("a", 'a'); out.State != StateError {
		t.Fatalf("custom classifier rejects 'a', want StateError, got %+v", out)
	}

	e.Feed("dead_grave", 0)
	if out := e.Feed("d", 'द'); out.State != StateResolved {
		t.Fatalf("custom classifier accepts 'द', want StateResolved, got %+v", out)
	}
}

func TestSetLetterClassifierNilRestoresDefault(t *testing.T) {
	tr := NewTrie()
	tr.Insert([]string{"dead_grave", "space"}, "`", false)
	e := NewEngine(tr)
	e.SetLetterClassifier(func(rune) bool { return false })
	e.SetLetterClassifier(nil)

	e.Feed("dead_grave", 0)
	out := e.Feed("a", 'a')
	if out.State != StateResolved {
		t.Fatalf("nil classifier should restore the default IsLetter check, got %+v", out)
	}
}

func TestParseSequenceLine(t *testing.T) {
	keys, result, symbolic, err := parseSequenceLine(`<dead_grave> <a> : "à"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "dead_grave" || keys[1] != "a" {
		t.Fatalf("got keys %v", keys)
	}
	if result != "à" || symbolic {
		t.Fatalf("got result %q symbolic %v", result, symbolic)
	}
}

func TestParseSequenceLineSymbolic(t *testing.T) {
	_, result, symbolic, err := parseSequenceLine(`<minus> <minus> <period> : "…" symbolic`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "…" || !symbolic {
		t.Fatalf("got result %q symbolic %v, want … true", result, symbolic)
	}
}

func TestParseSequenceLineMissingColon(t *testing.T) {
	_, _, _, err := parseSequenceLine(`<dead_grave> <a> "à"`)
	if err == nil {
		t.Fatalf("expected error for missing ':'")
	}
}

func TestParseSequenceLineUnquotedResult(t *testing.T) {
	_, _, _, err := parseSequenceLine(`<a> : a`)
	if err == nil {
		t.Fatalf("expected error for unquoted result")
	}
}
