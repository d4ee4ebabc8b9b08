// Package config manages the engine's persistent, hot-reloadable
// configuration (spec §6). Values are stored in TOML, resolved through
// XDG base directories, and published as immutable version-stamped
// snapshots so the event loop never observes a config in the middle of
// being edited by the setup tool (spec §5).
package config

// InlineCompletionMode controls whether/how a single high-confidence
// candidate is shown merged into the preedit instead of as a list entry.
type InlineCompletionMode string

const (
	InlineOff  InlineCompletionMode = "off"
	InlineOn   InlineCompletionMode = "on"
	InlineAuto InlineCompletionMode = "auto" // only above the confidence threshold
)

// AutoSelectMode controls whether the first candidate starts selected.
type AutoSelectMode string

const (
	AutoSelectOff AutoSelectMode = "off"
	AutoSelectOn  AutoSelectMode = "on"
)

// RecordMode controls what UserDB.record_commit is willing to learn (§4.4).
type RecordMode int

const (
	RecordEverything RecordMode = iota
	RecordCorrectOrPreviouslyRecorded
	RecordCorrect
	RecordNothing
)

// AutoSetting is one [option, value, regex] triple matched against the
// focused client id (spec §6 `autosettings`).
type AutoSetting struct {
	Option string `toml:"option"`
	Value  string `toml:"value"`
	Regex  string `toml:"regex"`
}

// Config is the complete persistent configuration surface of spec §6.
type Config struct {
	InputMethods []string `toml:"inputmethod"`
	Dictionaries []string `toml:"dictionary"`

	EmojiPredictions       bool   `toml:"emojipredictions"`
	EmojiTriggerCharacters string `toml:"emojitriggercharacters"`
	UnicodeDataAll         bool   `toml:"unicodedataall"`

	MinCharComplete int `toml:"mincharcomplete"`
	PageSize        int `toml:"pagesize"`

	InlineCompletion     InlineCompletionMode `toml:"inlinecompletion"`
	AutoSelectCandidate  AutoSelectMode       `toml:"autoselectcandidate"`
	AutoCommitCharacters string               `toml:"autocommitcharacters"`

	TabEnable              bool `toml:"tabenable"`
	ArrowKeysReopenPreedit bool `toml:"arrowkeysreopenpreedit"`
	DisableInTerminals     bool `toml:"disableinterminals"`

	OffTheRecord bool       `toml:"offtherecord"`
	RecordMode   RecordMode `toml:"recordmode"`

	InputMode                  bool `toml:"inputmode"`
	RememberInputMode          bool `toml:"rememberinputmode"`
	RememberLastUsedPreeditIme bool `toml:"rememberlastusedpreeditime"`

	CandidatesDelayMilliseconds uint `toml:"candidatesdelaymilliseconds"`
	DebugLevel                  int  `toml:"debuglevel"`

	KeyBindings map[string][]string `toml:"keybindings"`

	AutoSettings []AutoSetting `toml:"autosettings"`

	// Appearance/color/label keys are opaque to the core: the engine
	// never reads them, only forwards them to the host (spec §6).
	Appearance map[string]string `toml:"appearance"`

	// version is bumped on every publish so readers can detect a
	// reload without comparing field-by-field (spec §5).
	version uint64
}

// Version returns the publish sequence number of this snapshot.
func (c *Config) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}

// DefaultKeyBindings defines every recognized command; insert_raw is
// bound to an empty set (disabled), as spec §4.1 allows for any command.
func DefaultKeyBindings() map[string][]string {
	return map[string][]string{
		"insert_raw":            {},
		"backspace":             {"BackSpace"},
		"delete":                {"Delete"},
		"cursor_left":           {"Left"},
		"cursor_right":          {"Right"},
		"commit_preedit":        {"Return"},
		"commit_candidate_1":    {"1"},
		"commit_candidate_2":    {"2"},
		"commit_candidate_3":    {"3"},
		"commit_candidate_4":    {"4"},
		"commit_candidate_5":    {"5"},
		"commit_candidate_6":    {"6"},
		"commit_candidate_7":    {"7"},
		"commit_candidate_8":    {"8"},
		"commit_candidate_9":    {"9"},
		"cancel":                {"Escape"},
		"select_next":           {"Down", "Tab"},
		"select_previous":       {"Up", "ISO_Left_Tab"},
		"page_up":               {"Page_Up"},
		"page_down":             {"Page_Down"},
		"toggle_emoji":          {"F6"},
		"toggle_off_the_record": {"F9"},
		"lookup_related":        {"F5"},
		"lookup_variants":       {"F4"},
		"toggle_input_mode":     {"F7"},
		"next_input_method":     {"Control+Down"},
		"previous_input_method": {"Control+Up"},
		"enable_lookup":         {"Tab"},
	}
}

// Default returns a Config with the engine's built-in defaults.
func Default() *Config {
	return &Config{
		InputMethods:                []string{},
		Dictionaries:                []string{"en_US"},
		EmojiPredictions:            false,
		EmojiTriggerCharacters:      "_",
		UnicodeDataAll:              false,
		MinCharComplete:             1,
		PageSize:                    6,
		InlineCompletion:            InlineAuto,
		AutoSelectCandidate:         AutoSelectOff,
		AutoCommitCharacters:        "",
		TabEnable:                   true,
		ArrowKeysReopenPreedit:      false,
		DisableInTerminals:          false,
		OffTheRecord:                false,
		RecordMode:                  RecordEverything,
		InputMode:                   true,
		RememberInputMode:           true,
		RememberLastUsedPreeditIme:  false,
		CandidatesDelayMilliseconds: 200,
		DebugLevel:                  0,
		KeyBindings:                 DefaultKeyBindings(),
		AutoSettings:                nil,
		Appearance:                  map[string]string{},
		version:                     1,
	}
}

// EffectiveInputMethods returns the configured methods, falling back to
// the single NoIME method when none are configured (spec §6).
func (c *Config) EffectiveInputMethods() []string {
	if len(c.InputMethods) == 0 {
		return []string{"NoIME"}
	}
	if len(c.InputMethods) > 10 {
		return c.InputMethods[:10]
	}
	return c.InputMethods
}

// Clone returns a deep-enough copy for the hot-reload atomic swap: the
// top-level struct plus its slice/map fields are copied so the old
// snapshot remains valid for readers that still hold it.
func (c *Config) Clone() *Config {
	clone := *c
	clone.InputMethods = append([]string(nil), c.InputMethods...)
	clone.Dictionaries = append([]string(nil), c.Dictionaries...)
	clone.AutoSettings = append([]AutoSetting(nil), c.AutoSettings...)
	clone.KeyBindings = make(map[string][]string, len(c.KeyBindings))
	for k, v := range c.KeyBindings {
		clone.KeyBindings[k] = append([]string(nil), v...)
	}
	clone.Appearance = make(map[string]string, len(c.Appearance))
	for k, v := range c.Appearance {
		clone.Appearance[k] = v
	}
	return &clone
}
