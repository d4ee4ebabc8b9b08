package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/keyweave/inputcore/pkg/candidate"
	"github.com/keyweave/inputcore/pkg/compose"
	"github.com/keyweave/inputcore/pkg/config"
	"github.com/keyweave/inputcore/pkg/keymap"
	"github.com/keyweave/inputcore/pkg/preedit"
	"github.com/keyweave/inputcore/pkg/translit"
	"github.com/keyweave/inputcore/pkg/userdb"
)

// newTestEngine builds an Engine without going through New/config.Load,
// so the tests can exercise the event loop without touching the
// filesystem paths New resolves (config file, compose files, xdg dirs).
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := userdb.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open userdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.KeyBindings = config.DefaultKeyBindings()
	keyTable, errs := keymap.NewTable(cfg.KeyBindings)
	if len(errs) > 0 {
		t.Fatalf("unexpected key binding errors: %v", errs)
	}

	translitSt := translit.BuildSet(cfg.EffectiveInputMethods())
	buf := preedit.NewBuffer(translitSt, "NoIME")
	composeEngine := compose.NewEngine(compose.NewTrie())
	candEngine := candidate.NewEngine(db, nil, nil)
	ctrl := preedit.New(buf, composeEngine, candEngine, preedit.Options{
		CandidateOpts: candidateOptsFrom(cfg),
	})

	e := &Engine{
		translitSt:      translitSt,
		userDB:          db,
		cands:           candEngine,
		keyTable:        keyTable,
		ctrl:            ctrl,
		composeEngine:   composeEngine,
		compositionIMEs: cfg.EffectiveInputMethods(),
	}
	e.writer = newUserDBWriter(db)
	e.writer.start()
	t.Cleanup(func() { e.writer.stop() })
	return e
}

func keyEvent(keysym string, r rune) keymap.KeyEvent {
	return keymap.KeyEvent{Keysym: keysym, Rune: r}
}

func TestHandleKeyEventInsertsAndUpdatesPreedit(t *testing.T) {
	e := newTestEngine(t)
	actions := e.HandleKeyEvent(keyEvent("h", 'h'))
	if len(actions) == 0 || actions[0].Kind != ActionUpdatePreedit || actions[0].Preedit != "h" {
		t.Fatalf("want update_preedit('h'), got %+v", actions)
	}
}

func TestHandleKeyEventCommitPreeditEmitsCommitText(t *testing.T) {
	e := newTestEngine(t)
	e.HandleKeyEvent(keyEvent("h", 'h'))
	e.HandleKeyEvent(keyEvent("i", 'i'))
	actions := e.HandleKeyEvent(keymap.KeyEvent{Keysym: "Return"})
	found := false
	for _, a := range actions {
		if a.Kind == ActionCommitText && a.Text == "hi" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want commit_text('hi'), got %+v", actions)
	}
}

func TestHandleKeyEventUnboundKeyForwardsToHost(t *testing.T) {
	e := newTestEngine(t)
	actions := e.HandleKeyEvent(keymap.KeyEvent{Keysym: "F20", IsForwarded: true})
	if len(actions) != 1 || actions[0].Kind != ActionForwardKeyEvent {
		t.Fatalf("want a single forward_key_event, got %+v", actions)
	}
}

func TestHandleKeyEventToggleOffTheRecordUpdatesUserDB(t *testing.T) {
	e := newTestEngine(t)
	e.HandleKeyEvent(keymap.KeyEvent{Keysym: "F9"})
	if !e.offTheRecord {
		t.Fatalf("want off-the-record toggled on")
	}
	if err := e.userDB.RecordCommit("ghost", "", "", 1); err != nil {
		t.Fatalf("record_commit: %v", err)
	}
	if entries, _ := e.userDB.Lookup("ghost", "", "", 1, 10); len(entries) != 0 {
		t.Fatalf("want UserDB off the record after the toggle, got %+v", entries)
	}
}

func TestHandleKeyEventCursorLeftAtEdgeForwards(t *testing.T) {
	e := newTestEngine(t)
	e.HandleKeyEvent(keyEvent("h", 'h'))
	actions := e.HandleKeyEvent(keymap.KeyEvent{Keysym: "Left"})
	if len(actions) == 0 || actions[0].Kind != ActionUpdatePreedit || actions[0].CursorIndex != 0 {
		t.Fatalf("want cursor_left within the buffer to re-render the preedit with the cursor at 0, got %+v", actions)
	}
	actions = e.HandleKeyEvent(keymap.KeyEvent{Keysym: "Left"})
	if len(actions) != 1 || actions[0].Kind != ActionForwardKeyEvent {
		t.Fatalf("want left-edge cursor_left to forward to host, got %+v", actions)
	}
}

func TestStatsAggregatesUserDBAndCandidateEngine(t *testing.T) {
	e := newTestEngine(t)
	e.cands.Produce(context.Background(), []string{"h"}, candidate.Options{})

	stats, err := e.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Candidate.ProduceCount != 1 {
		t.Fatalf("want 1 candidate production recorded, got %+v", stats.Candidate)
	}
}

func TestCycleInputMethodWraps(t *testing.T) {
	e := newTestEngine(t)
	e.compositionIMEs = []string{"NoIME", "hi-itrans"}
	e.cycleInputMethod(1)
	if e.activeInputMethodName() != "hi-itrans" {
		t.Fatalf("want hi-itrans after cycling forward, got %s", e.activeInputMethodName())
	}
	e.cycleInputMethod(1)
	if e.activeInputMethodName() != "NoIME" {
		t.Fatalf("want wraparound to NoIME, got %s", e.activeInputMethodName())
	}
}
