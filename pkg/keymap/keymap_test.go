package keymap

import "testing"

func TestDigitsCommitOnlyWhenCandidatesVisible(t *testing.T) {
	table, errs := NewTable(map[string][]string{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ev := KeyEvent{Keysym: "5"}

	got := table.Resolve(ev, true, false)
	if len(got) != 1 || got[0] != CmdCommitCandidateN {
		t.Fatalf("with candidates visible, got %v, want [commit_candidate_n]", got)
	}

	got = table.Resolve(ev, false, false)
	if len(got) != 1 || got[0] != CmdInsertRaw {
		t.Fatalf("with no candidates, got %v, want [insert_raw]", got)
	}
}

func TestDigitsInsertWhenComposeInProgressEvenWithCandidatesVisible(t *testing.T) {
	table, errs := NewTable(map[string][]string{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ev := KeyEvent{Keysym: "5"}

	got := table.Resolve(ev, true, true)
	if len(got) != 1 || got[0] != CmdInsertRaw {
		t.Fatalf("with compose in progress, got %v, want [insert_raw]", got)
	}
}

func TestTabPrecedence(t *testing.T) {
	raw := map[string][]string{
		string(CmdEnableLookup): {"Tab"},
		string(CmdSelectNext):   {"Tab"},
	}
	table, errs := NewTable(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ev := KeyEvent{Keysym: "Tab"}

	got := table.Resolve(ev, false, false)
	if len(got) != 1 || got[0] != CmdEnableLookup {
		t.Fatalf("with no candidate list, got %v, want [enable_lookup]", got)
	}

	got = table.Resolve(ev, true, false)
	if len(got) != 1 || got[0] != CmdSelectNext {
		t.Fatalf("with candidate list visible, got %v, want [select_next]", got)
	}
}

func TestInvalidBindingIsSurfacedNotFatal(t *testing.T) {
	raw := map[string][]string{
		string(CmdCancel): {"\x01bad"},
	}
	table, errs := NewTable(raw)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one InvalidBinding error, got %v", errs)
	}
	if len(table.bindings[CmdCancel]) != 0 {
		t.Fatalf("invalid binding should not have been registered")
	}
}

func TestBareShiftPressReleaseTogglesCaseMode(t *testing.T) {
	table, _ := NewTable(map[string][]string{})

	table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift}, false, false)
	got := table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift, IsRelease: true}, false, false)
	if len(got) != 1 || got[0] != CmdToggleCaseMode {
		t.Fatalf("want a bare Shift press/release to toggle case mode, got %v", got)
	}
}

func TestShiftReleaseAfterOtherKeyDoesNotToggleCaseMode(t *testing.T) {
	table, _ := NewTable(map[string][]string{})

	table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift}, false, false)
	table.Resolve(KeyEvent{Keysym: "a", Rune: 'a', Modifiers: ModShift}, false, false)
	got := table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift, IsRelease: true}, false, false)
	if len(got) != 0 {
		t.Fatalf("want no case-mode toggle once another key was handled while Shift was held, got %v", got)
	}
}

func TestShiftUsedResetsAfterRelease(t *testing.T) {
	table, _ := NewTable(map[string][]string{})

	table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift}, false, false)
	table.Resolve(KeyEvent{Keysym: "a", Rune: 'a', Modifiers: ModShift}, false, false)
	table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift, IsRelease: true}, false, false)

	table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift}, false, false)
	got := table.Resolve(KeyEvent{Keysym: "Shift_L", Modifiers: ModShift, IsRelease: true}, false, false)
	if len(got) != 1 || got[0] != CmdToggleCaseMode {
		t.Fatalf("want a fresh bare Shift press/release after a prior used one to toggle case mode, got %v", got)
	}
}

func TestEmptyBindingDisablesCommand(t *testing.T) {
	raw := map[string][]string{
		string(CmdToggleEmoji): {},
	}
	table, _ := NewTable(raw)
	ev := KeyEvent{Keysym: "F6"}
	got := table.Resolve(ev, false, false)
	for _, c := range got {
		if c == CmdToggleEmoji {
			t.Fatalf("disabled command fired: %v", got)
		}
	}
}
