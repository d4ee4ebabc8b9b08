// Package keymap translates raw key events into semantic engine commands
// (spec §4.1). It owns no engine state — given a KeyEvent and a binding
// table it returns zero or more Commands; everything else is the
// PreeditController's job.
package keymap

import "github.com/keyweave/inputcore/internal/logger"

var log = logger.New("keymap")

// Command is one semantic action the PreeditController understands.
type Command string

const (
	CmdInsertRaw            Command = "insert_raw"
	CmdBackspace            Command = "backspace"
	CmdDelete               Command = "delete"
	CmdCursorLeft           Command = "cursor_left"
	CmdCursorRight          Command = "cursor_right"
	CmdCommitPreedit        Command = "commit_preedit"
	CmdCommitCandidateN     Command = "commit_candidate_n"
	CmdCancel               Command = "cancel"
	CmdSelectNext           Command = "select_next"
	CmdSelectPrevious       Command = "select_previous"
	CmdPageUp               Command = "page_up"
	CmdPageDown             Command = "page_down"
	CmdToggleEmoji          Command = "toggle_emoji"
	CmdToggleOffTheRecord   Command = "toggle_off_the_record"
	CmdLookupRelated        Command = "lookup_related"
	CmdLookupVariants       Command = "lookup_variants"
	CmdToggleInputMode      Command = "toggle_input_mode"
	CmdNextInputMethod      Command = "next_input_method"
	CmdPreviousInputMethod  Command = "previous_input_method"
	CmdEnableLookup         Command = "enable_lookup"
	CmdToggleCaseMode       Command = "toggle_case_mode"
)

// allCommands is the full recognized command set — every one of these
// must have an entry in a binding table, even if bound to nothing
// (spec §4.1: "every recognized command defined; any command may be
// bound to an empty set").
var allCommands = []Command{
	CmdInsertRaw, CmdBackspace, CmdDelete, CmdCursorLeft, CmdCursorRight,
	CmdCommitPreedit, CmdCommitCandidateN, CmdCancel, CmdSelectNext,
	CmdSelectPrevious, CmdPageUp, CmdPageDown, CmdToggleEmoji,
	CmdToggleOffTheRecord, CmdLookupRelated, CmdLookupVariants, CmdToggleInputMode,
	CmdNextInputMethod, CmdPreviousInputMethod, CmdEnableLookup,
}

// KeyEvent mirrors spec §3's KeyEvent data model. It is immutable and
// produced by the host.
type KeyEvent struct {
	Code        uint32
	Keysym      string // symbolic name, e.g. "a", "Tab", "dead_grave"
	Rune        rune   // the character the key produces, if any
	Modifiers   Modifiers
	IsRelease   bool
	IsForwarded bool
}

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// Has reports whether m includes all bits of other.
func (m Modifiers) Has(other Modifiers) bool { return m&other == other }

// combo is one parsed keybinding, e.g. "Control+Down".
type combo struct {
	keysym string
	mods   Modifiers
}

// Table is a validated, config-derived keybinding table.
type Table struct {
	bindings map[Command][]combo
	// shiftDown and shiftUsed track whether a bare Shift press/release
	// pair (no intervening key press) has been observed, for the
	// case-mode toggle rule of §4.1.
	shiftDown bool
	shiftUsed bool
}

// InvalidBinding is returned (not panicked) when a keysym in the
// configuration is unknown, per spec §4.1: "surfaced, not fatal; binding
// is ignored."
type InvalidBinding struct {
	Command Command
	Keysym  string
}

func (e *InvalidBinding) Error() string {
	return "keymap: unknown keysym " + e.Keysym + " bound to " + string(e.Command)
}

// KnownKeysym reports whether name is recognized by the current keymap.
// A real host keymap would consult the platform's keysym table; here we
// accept any non-empty ASCII-ish identifier or a "Mod+Keysym" combo and
// reject the empty string and control characters, which is enough to
// exercise the InvalidBinding path deterministically in tests.
func KnownKeysym(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < 0x20 {
			return false
		}
	}
	return true
}

// NewTable builds a binding table from raw config, dropping (and
// reporting) any binding referencing an unknown keysym.
func NewTable(raw map[string][]string) (*Table, []error) {
	t := &Table{bindings: make(map[Command][]combo)}
	var errs []error
	for _, cmd := range allCommands {
		combos, ok := raw[string(cmd)]
		if !ok {
			continue
		}
		for _, spec := range combos {
			c, err := parseCombo(spec)
			if err != nil {
				errs = append(errs, &InvalidBinding{Command: cmd, Keysym: spec})
				log.Warnf("dropping invalid binding %s -> %s: %v", cmd, spec, err)
				continue
			}
			t.bindings[cmd] = append(t.bindings[cmd], c)
		}
	}
	return t, errs
}

func parseCombo(spec string) (combo, error) {
	mods, keysym := splitMods(spec)
	if !KnownKeysym(keysym) {
		return combo{}, &InvalidBinding{Keysym: keysym}
	}
	return combo{keysym: keysym, mods: mods}, nil
}

func splitMods(spec string) (Modifiers, string) {
	var mods Modifiers
	rest := spec
	for {
		switch {
		case hasPrefixFold(rest, "Control+"):
			mods |= ModControl
			rest = rest[len("Control+"):]
		case hasPrefixFold(rest, "Shift+"):
			mods |= ModShift
			rest = rest[len("Shift+"):]
		case hasPrefixFold(rest, "Alt+"):
			mods |= ModAlt
			rest = rest[len("Alt+"):]
		case hasPrefixFold(rest, "Super+"):
			mods |= ModSuper
			rest = rest[len("Super+"):]
		default:
			return mods, rest
		}
	}
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'a' <= a && a <= 'z' {
			a -= 'a' - 'A'
		}
		if 'a' <= b && b <= 'z' {
			b -= 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

func (t *Table) matches(cmd Command, ev KeyEvent) bool {
	for _, c := range t.bindings[cmd] {
		if c.keysym == ev.Keysym && c.mods == ev.Modifiers {
			return true
		}
	}
	return false
}

// Resolve translates a KeyEvent into zero or more Commands, applying the
// precedence and context-sensitivity rules of spec §4.1.
//
// candidatesVisible and composeActive let the caller (PreeditController)
// supply the context needed to resolve the Tab-ambiguity and
// digit-as-commit-shortcut rules without KeyMap reaching into preedit
// state itself.
func (t *Table) Resolve(ev KeyEvent, candidatesVisible, composeActive bool) []Command {
	if ev.IsRelease {
		return t.resolveRelease(ev)
	}
	t.shiftDown = ev.Modifiers.Has(ModShift)
	if t.shiftDown && ev.Keysym != "Shift_L" && ev.Keysym != "Shift_R" {
		// A non-Shift key was handled while Shift is held, so the
		// pending release is not a bare press/release pair: it must not
		// toggle case mode (spec §4.1).
		t.shiftUsed = true
	}

	// Digit keys are commit shortcuts only while a candidate list is
	// visible and no compose sequence is in progress: a live dead-key
	// sequence routes digits to the compose engine's keypad fallback
	// instead (spec §4.3b) even if a stale candidate list is showing.
	if isDigit(ev.Keysym) {
		if candidatesVisible && !composeActive {
			return []Command{CmdCommitCandidateN}
		}
		return []Command{CmdInsertRaw}
	}

	// Tab ambiguity: enable_lookup vs select_next_candidate.
	if t.matches(CmdEnableLookup, ev) && t.matches(CmdSelectNext, ev) {
		if !candidatesVisible && len(t.bindings[CmdEnableLookup]) > 0 {
			return []Command{CmdEnableLookup}
		}
		return []Command{CmdSelectNext}
	}

	var out []Command
	for cmd := range t.bindings {
		if t.matches(cmd, ev) {
			out = append(out, cmd)
		}
	}
	if len(out) == 0 && !ev.IsForwarded {
		out = append(out, CmdInsertRaw)
	}
	return out
}

// resolveRelease implements the shift-based case-mode toggle detection:
// a press/release pair with no intervening press toggles case mode.
func (t *Table) resolveRelease(ev KeyEvent) []Command {
	if ev.Keysym != "Shift_L" && ev.Keysym != "Shift_R" {
		return nil
	}
	if t.shiftDown && !t.shiftUsed {
		t.shiftDown = false
		return []Command{CmdToggleCaseMode}
	}
	t.shiftDown = false
	t.shiftUsed = false
	return nil
}

func isDigit(keysym string) bool {
	return len(keysym) == 1 && keysym[0] >= '0' && keysym[0] <= '9'
}
