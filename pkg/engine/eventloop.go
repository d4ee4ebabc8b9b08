package engine

import (
	"time"

	"github.com/keyweave/inputcore/pkg/candidate"
	"github.com/keyweave/inputcore/pkg/keymap"
	"github.com/keyweave/inputcore/pkg/preedit"
)

// ActionKind names one outbound host action (spec §6's outbound
// messages: commit_text, update_preedit, update_candidates,
// update_auxiliary, forward_key_event, delete_surrounding_text).
// register_properties is not an action: pkg/hostproto writes it
// directly from PublishStats.
type ActionKind int

const (
	ActionCommitText ActionKind = iota
	ActionUpdatePreedit
	ActionUpdateCandidates
	ActionUpdateAuxiliary
	ActionForwardKeyEvent
	ActionDeleteSurroundingText
)

// HostAction is one instruction for the host surface to carry out. The
// event loop returns a slice of these per HandleKeyEvent call rather
// than calling host callbacks directly, keeping pkg/engine free of any
// dependency on a transport (spec §9: "callbacks pass messages, not
// references").
type HostAction struct {
	Kind ActionKind

	Text         string // CommitText
	Preedit      string // UpdatePreedit: canonical preedit string
	CursorIndex  int    // UpdatePreedit
	Candidates   []candidate.Candidate
	Page         int
	Auxiliary    string // UpdateAuxiliary: status text (e.g. active IME name)
	ForwardEvent keymap.KeyEvent
	DeleteBefore int // DeleteSurroundingText: characters before cursor
	DeleteAfter  int
}

// HandleKeyEvent is the single event-loop entry point: it resolves the
// raw key through the binding table and dispatches to the
// PreeditController, returning whatever the host must do in response
// (spec §5: "single-threaded, cooperative: one event handled to
// completion before the next is read").
func (e *Engine) HandleKeyEvent(ev keymap.KeyEvent) []HostAction {
	if ev.IsRelease {
		// The release still goes through Resolve so the key table's
		// Shift press/release tracking stays current, but any
		// toggle_case_mode it returns is discarded: case mode is never
		// changed, whatever the active input method.
		e.keyTable.Resolve(ev, false, e.composeEngine.InProgress())
		return nil
	}

	candidatesVisible := len(e.ctrl.Candidates()) > 0
	commands := e.keyTable.Resolve(ev, candidatesVisible, e.composeEngine.InProgress())
	if len(commands) == 0 {
		return []HostAction{{Kind: ActionForwardKeyEvent, ForwardEvent: ev}}
	}

	var actions []HostAction
	for _, cmd := range commands {
		actions = append(actions, e.dispatch(cmd, ev)...)
	}
	return actions
}

func (e *Engine) dispatch(cmd keymap.Command, ev keymap.KeyEvent) []HostAction {
	switch cmd {
	case keymap.CmdInsertRaw:
		e.ctrl.InsertRaw(ev)
		return e.renderState()

	case keymap.CmdBackspace:
		e.ctrl.Backspace()
		return e.renderState()

	case keymap.CmdDelete:
		e.ctrl.Buffer().Delete()
		return e.renderState()

	case keymap.CmdCursorLeft:
		if atEdge := e.ctrl.CursorLeft(); atEdge {
			return []HostAction{{Kind: ActionForwardKeyEvent, ForwardEvent: ev}}
		}
		return e.renderState()

	case keymap.CmdCursorRight:
		if atEdge := e.ctrl.CursorRight(); atEdge {
			return []HostAction{{Kind: ActionForwardKeyEvent, ForwardEvent: ev}}
		}
		return e.renderState()

	case keymap.CmdCommitPreedit:
		return e.commit(nil)

	case keymap.CmdCommitCandidateN:
		if e.composeEngine.InProgress() {
			e.ctrl.InsertRaw(ev)
			return e.renderState()
		}
		idx := digitIndex(ev)
		cands := e.ctrl.Candidates()
		if idx < 0 || idx >= len(cands) {
			return nil
		}
		return e.commit(&cands[idx])

	case keymap.CmdCancel:
		if e.ctrl.State() == preedit.StateEmpty {
			return nil
		}
		e.ctrl.Cancel()
		return e.renderState()

	case keymap.CmdSelectNext:
		e.ctrl.SelectNext()
		return e.renderState()

	case keymap.CmdSelectPrevious:
		e.ctrl.SelectPrevious()
		return e.renderState()

	case keymap.CmdToggleEmoji:
		e.emojiMode = !e.emojiMode
		return []HostAction{{Kind: ActionUpdateAuxiliary, Auxiliary: emojiStatus(e.emojiMode)}}

	case keymap.CmdToggleOffTheRecord:
		e.offTheRecord = !e.offTheRecord
		e.userDB.SetOffTheRecord(e.offTheRecord)
		return []HostAction{{Kind: ActionUpdateAuxiliary, Auxiliary: offTheRecordStatus(e.offTheRecord)}}

	case keymap.CmdLookupRelated:
		cands := e.ctrl.Candidates()
		if len(cands) == 0 {
			return nil
		}
		related := e.cands.Related(cands[0].Text)
		return []HostAction{{Kind: ActionUpdateCandidates, Candidates: related}}

	case keymap.CmdLookupVariants:
		cands := e.ctrl.Candidates()
		if len(cands) == 0 {
			return nil
		}
		variants := e.cands.Variants(cands[0].Text)
		return []HostAction{{Kind: ActionUpdateCandidates, Candidates: variants}}

	case keymap.CmdNextInputMethod:
		e.cycleInputMethod(1)
		return []HostAction{{Kind: ActionUpdateAuxiliary, Auxiliary: e.activeInputMethodName()}}

	case keymap.CmdPreviousInputMethod:
		e.cycleInputMethod(-1)
		return []HostAction{{Kind: ActionUpdateAuxiliary, Auxiliary: e.activeInputMethodName()}}

	case keymap.CmdPageUp, keymap.CmdPageDown, keymap.CmdToggleInputMode, keymap.CmdEnableLookup:
		return e.renderState()

	default:
		return nil
	}
}

func digitIndex(ev keymap.KeyEvent) int {
	if ev.Rune < '1' || ev.Rune > '9' {
		return -1
	}
	return int(ev.Rune - '1')
}

func (e *Engine) commit(chosen *candidate.Candidate) []HostAction {
	result := e.ctrl.Commit(chosen)
	now := time.Now().Unix()
	e.writer.Commit(result.Text, "", "", now)
	return []HostAction{
		{Kind: ActionCommitText, Text: result.Text},
		{Kind: ActionUpdatePreedit, Preedit: ""},
		{Kind: ActionUpdateCandidates, Candidates: nil},
	}
}

// renderState reflects the controller's current preedit/candidate state
// as host actions, matching spec §6's pairing of update_preedit with
// update_candidates after any state-changing command.
func (e *Engine) renderState() []HostAction {
	buf := e.ctrl.Buffer()
	actions := []HostAction{{
		Kind:        ActionUpdatePreedit,
		Preedit:     buf.Canonical(),
		CursorIndex: buf.Cursor(),
	}}
	if e.ctrl.State() == preedit.StateEmpty {
		return actions
	}
	actions = append(actions, HostAction{
		Kind:       ActionUpdateCandidates,
		Candidates: e.ctrl.Candidates(),
	})
	return actions
}

func emojiStatus(on bool) string {
	if on {
		return "emoji: on"
	}
	return "emoji: off"
}

func offTheRecordStatus(on bool) string {
	if on {
		return "off the record"
	}
	return ""
}

func (e *Engine) cycleInputMethod(delta int) {
	n := len(e.compositionIMEs)
	if n == 0 {
		return
	}
	e.activeIME = ((e.activeIME+delta)%n + n) % n
	e.syncLetterClassifier()
}

func (e *Engine) activeInputMethodName() string {
	if e.activeIME < 0 || e.activeIME >= len(e.compositionIMEs) {
		return "NoIME"
	}
	return e.compositionIMEs[e.activeIME]
}

// FocusIn/FocusOut/SetSurroundingText implement spec §6's inbound focus
// messages, forwarded to the Controller's focus bookkeeping.
func (e *Engine) FocusIn(isPassword, ignoredTerminal bool) {
	e.ctrl.SetFocus(preedit.FocusState{IsPassword: isPassword, IgnoredTerminal: ignoredTerminal})
}

func (e *Engine) FocusOut() {
	e.ctrl.SetFocus(preedit.FocusState{})
}

func (e *Engine) SetSurroundingText(text string, cursorOffset int) {
	f := preedit.FocusState{
		SurroundingText: text,
		CursorOffset:    cursorOffset,
	}
	e.ctrl.SetFocus(f)
}

// ReopenPreedit implements spec §4.8's reopen-preedit rule for a host
// cursor click/arrow landing inside an existing committed word.
func (e *Engine) ReopenPreedit(word string, deleteSurrounding func(string) bool) []HostAction {
	if !e.ctrl.ReopenPreedit(word, deleteSurrounding) {
		return nil
	}
	return e.renderState()
}
