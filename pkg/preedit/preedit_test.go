package preedit

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keyweave/inputcore/pkg/candidate"
	"github.com/keyweave/inputcore/pkg/compose"
	"github.com/keyweave/inputcore/pkg/keymap"
	"github.com/keyweave/inputcore/pkg/translit"
	"github.com/keyweave/inputcore/pkg/userdb"
)

func newTestController(t *testing.T) *Controller {
	return newTestControllerWithOpts(t, Options{})
}

func newTestControllerWithOpts(t *testing.T, opts Options) *Controller {
	t.Helper()
	set := translit.NewSet(translit.NoIME{})
	buf := NewBuffer(set, "NoIME")
	db, err := userdb.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open userdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	candEngine := candidate.NewEngine(db, nil, nil)
	return New(buf, compose.NewEngine(compose.NewTrie()), candEngine, opts)
}

func keyEvent(keysym string, r rune) keymap.KeyEvent {
	return keymap.KeyEvent{Keysym: keysym, Rune: r}
}

func TestEmptyToEditingOnInsert(t *testing.T) {
	c := newTestController(t)
	if c.State() != StateEmpty {
		t.Fatalf("want initial state Empty")
	}
	c.InsertRaw(keyEvent("h", 'h'))
	if c.State() != StateEditing {
		t.Fatalf("want Editing after first insert")
	}
	if c.Buffer().Canonical() != "h" {
		t.Fatalf("want canonical 'h', got %q", c.Buffer().Canonical())
	}
}

func TestBackspaceToEmptyWhenBufferDrains(t *testing.T) {
	c := newTestController(t)
	c.InsertRaw(keyEvent("h", 'h'))
	c.Backspace()
	if c.State() != StateEmpty {
		t.Fatalf("want Empty after backspacing the only token")
	}
}

func TestCommitResetsAndShiftsContext(t *testing.T) {
	c := newTestController(t)
	c.InsertRaw(keyEvent("h", 'h'))
	c.InsertRaw(keyEvent("i", 'i'))
	result := c.Commit(nil)
	if result.Text != "hi" {
		t.Fatalf("want commit text 'hi', got %q", result.Text)
	}
	if c.State() != StateEmpty {
		t.Fatalf("want Empty after commit")
	}
	if c.cands.Context().Context1 != "hi" {
		t.Fatalf("want context1 shifted to 'hi', got %q", c.cands.Context().Context1)
	}
}

func TestCancelClearsSelectionBeforePreedit(t *testing.T) {
	c := newTestController(t)
	c.InsertRaw(keyEvent("h", 'h'))
	c.candidates = []candidate.Candidate{{Text: "hi"}, {Text: "ha"}}
	c.selected = 1

	c.Cancel()
	if c.selected != -1 {
		t.Fatalf("want selection cleared first, got selected=%d", c.selected)
	}
	if c.State() != StateEditing {
		t.Fatalf("want preedit untouched on first cancel")
	}

	c.Cancel()
	if c.State() != StateEmpty {
		t.Fatalf("want preedit cleared on second cancel")
	}
}

func TestCursorMovementReportsEdges(t *testing.T) {
	c := newTestController(t)
	c.InsertRaw(keyEvent("h", 'h'))
	if atEdge := c.CursorRight(); !atEdge {
		t.Fatalf("want right edge after inserting at the end")
	}
	if atEdge := c.CursorLeft(); atEdge {
		t.Fatalf("want cursor_left to succeed, not report edge")
	}
	if atEdge := c.CursorLeft(); !atEdge {
		t.Fatalf("want left edge at token 0")
	}
}

func TestSelectNextWrapsAround(t *testing.T) {
	c := newTestController(t)
	c.candidates = []candidate.Candidate{{Text: "a"}, {Text: "b"}}
	c.selected = -1
	c.SelectNext()
	if c.selected != 0 {
		t.Fatalf("want first selection at 0, got %d", c.selected)
	}
	c.SelectNext()
	if c.selected != 1 {
		t.Fatalf("want second selection at 1, got %d", c.selected)
	}
	c.SelectNext()
	if c.selected != 0 {
		t.Fatalf("want wraparound to 0, got %d", c.selected)
	}
}

func TestUndoReinsertsBackspacedToken(t *testing.T) {
	c := newTestController(t)
	c.InsertRaw(keyEvent("h", 'h'))
	c.InsertRaw(keyEvent("i", 'i'))
	c.Backspace()
	if c.Buffer().Canonical() != "h" {
		t.Fatalf("want 'h' after backspace, got %q", c.Buffer().Canonical())
	}
	c.Undo()
	if c.Buffer().Canonical() != "hi" {
		t.Fatalf("want undo to restore 'hi', got %q", c.Buffer().Canonical())
	}
}

func TestReopenPreeditRequiresReliableFocus(t *testing.T) {
	c := newTestController(t)
	called := false
	deleteFn := func(string) bool { called = true; return true }

	if ok := c.ReopenPreedit("hello", deleteFn); ok {
		t.Fatalf("want reopen refused before any commit in this focus session")
	}
	if called {
		t.Fatalf("deleteSurrounding should not be called when unreliable")
	}

	c.focus.CommitsThisSession = 1
	if ok := c.ReopenPreedit("hello", deleteFn); !ok {
		t.Fatalf("want reopen to succeed once focus is reliable")
	}
	if c.Buffer().Canonical() != "hello" {
		t.Fatalf("want buffer repopulated with 'hello', got %q", c.Buffer().Canonical())
	}
}

func TestReopenPreeditRefusesOnPasswordField(t *testing.T) {
	c := newTestController(t)
	c.focus.CommitsThisSession = 1
	c.focus.IsPassword = true
	if ok := c.ReopenPreedit("hello", func(string) bool { return true }); ok {
		t.Fatalf("want reopen refused on a password field")
	}
}

// TestScheduleProduceFiresAfterDebounceDelay exercises the real timer
// path InsertRaw schedules: onReady must fire on its own, after the
// debounce delay, with no further calls from the test.
func TestScheduleProduceFiresAfterDebounceDelay(t *testing.T) {
	c := newTestControllerWithOpts(t, Options{DebounceDelay: 5 * time.Millisecond})
	ready := make(chan struct{}, 1)
	c.OnCandidatesReady(func() { ready <- struct{}{} })

	c.InsertRaw(keyEvent("h", 'h'))

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatalf("onReady was never called after the debounce delay elapsed")
	}
}

// TestScheduleProduceDropsSupersededTimer exercises the cancellation
// half of debouncing: a second keystroke arriving before the first
// timer fires must prevent that first timer's production from landing.
func TestScheduleProduceDropsSupersededTimer(t *testing.T) {
	c := newTestControllerWithOpts(t, Options{DebounceDelay: 30 * time.Millisecond})
	var fired int32
	c.OnCandidatesReady(func() { atomic.AddInt32(&fired, 1) })

	c.InsertRaw(keyEvent("h", 'h'))
	time.Sleep(5 * time.Millisecond) // well inside the 30ms window
	c.InsertRaw(keyEvent("i", 'i'))

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("want exactly one onReady call once the second keystroke supersedes the first, got %d", got)
	}
}

// TestRunProduceDiscardsStaleJob unit-tests the IsCurrent guard runProduce
// relies on directly, without waiting on real timers.
func TestRunProduceDiscardsStaleJob(t *testing.T) {
	c := newTestController(t)
	stale := c.jobs.Next()
	c.jobs.Next() // supersedes stale
	c.candidates = []candidate.Candidate{{Text: "keep"}}

	c.runProduce(stale)

	got := c.Candidates()
	if len(got) != 1 || got[0].Text != "keep" {
		t.Fatalf("want stale runProduce call to leave candidates untouched, got %v", got)
	}
}

func TestSetFocusClearsContextOnSurroundingTextChange(t *testing.T) {
	c := newTestController(t)
	c.cands.Context().Shift("previous")
	c.SetFocus(FocusState{SurroundingText: "new text"})
	if c.cands.Context().Context1 != "" {
		t.Fatalf("want context cleared after surrounding text changed, got %q", c.cands.Context().Context1)
	}
}
