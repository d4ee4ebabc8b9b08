// Package hostproto is the msgpack-encoded wire protocol between the
// engine process and its host, implementing the abstract host surface
// of spec §6. It mirrors the teacher's single combined request struct
// (pkg/server/server.go's Request, dispatched by a Command string field)
// generalized across the full inbound/outbound command surface, and
// adopts the teacher's pkg/server/interface.go's short msgpack field
// tags for wire compactness.
package hostproto

// InboundKind names one of §6's inbound host messages.
type InboundKind string

const (
	InKeyEvent           InboundKind = "key_event"
	InFocusIn            InboundKind = "focus_in"
	InFocusOut           InboundKind = "focus_out"
	InSetSurroundingText InboundKind = "set_surrounding_text"
	InEnable             InboundKind = "enable"
	InDisable            InboundKind = "disable"
	InPropertyActivate   InboundKind = "property_activate"
)

// Inbound is every inbound message spec §6 names, collapsed into one
// msgpack-tagged struct discriminated by Kind — the same shape the
// teacher's Request struct uses for its smaller JSON command set.
type Inbound struct {
	Kind InboundKind `msgpack:"k"`

	// key_event
	Code        uint32 `msgpack:"code,omitempty"`
	Keysym      string `msgpack:"keysym,omitempty"`
	Rune        int32  `msgpack:"rune,omitempty"`
	Modifiers   uint8  `msgpack:"mods,omitempty"`
	IsRelease   bool   `msgpack:"release,omitempty"`
	IsForwarded bool   `msgpack:"forwarded,omitempty"`

	// focus_in
	ClientID        string `msgpack:"client_id,omitempty"`
	IsPassword      bool   `msgpack:"password,omitempty"`
	IgnoredTerminal bool   `msgpack:"ignored_terminal,omitempty"`

	// set_surrounding_text
	Text   string `msgpack:"text,omitempty"`
	Cursor int    `msgpack:"cursor,omitempty"`
	Anchor int    `msgpack:"anchor,omitempty"`

	// property_activate
	PropertyName  string `msgpack:"name,omitempty"`
	PropertyState string `msgpack:"state,omitempty"`
}

// OutboundKind names one of §6's outbound host messages.
type OutboundKind string

const (
	OutCommitText            OutboundKind = "commit_text"
	OutUpdatePreedit         OutboundKind = "update_preedit"
	OutUpdateCandidates      OutboundKind = "update_candidates"
	OutUpdateAuxiliary       OutboundKind = "update_auxiliary"
	OutForwardKeyEvent       OutboundKind = "forward_key_event"
	OutDeleteSurroundingText OutboundKind = "delete_surrounding_text"
	OutRegisterProperties    OutboundKind = "register_properties"
)

// StyleRun is one span of the preedit string sharing the same
// host-rendering style (spec §6: "update_preedit(str, cursor, visible,
// style_runs)").
type StyleRun struct {
	Start int    `msgpack:"start"`
	End   int    `msgpack:"end"`
	Style string `msgpack:"style,omitempty"`
}

// WireCandidate is the wire form of candidate.Candidate: enough to
// render a candidate list host-side, with the Source already rendered
// to its string name so the host need not know the engine's enum.
type WireCandidate struct {
	Text       string  `msgpack:"text"`
	Source     string  `msgpack:"source"`
	Score      float64 `msgpack:"score"`
	CodePoint  string  `msgpack:"code_point,omitempty"`
	Annotation string  `msgpack:"annotation,omitempty"`
}

// Property is one entry of register_properties (spec §6).
type Property struct {
	Name  string `msgpack:"name"`
	Label string `msgpack:"label,omitempty"`
	State string `msgpack:"state,omitempty"`
}

// Outbound is every outbound message spec §6 names, collapsed into one
// msgpack-tagged struct discriminated by Kind.
type Outbound struct {
	Kind OutboundKind `msgpack:"k"`

	// commit_text, update_preedit, update_auxiliary
	Text    string `msgpack:"text,omitempty"`
	Cursor  int    `msgpack:"cursor,omitempty"`
	Visible bool   `msgpack:"visible,omitempty"`

	StyleRuns []StyleRun `msgpack:"style_runs,omitempty"`

	// update_candidates
	Candidates []WireCandidate `msgpack:"candidates,omitempty"`
	Page       int             `msgpack:"page,omitempty"`

	// forward_key_event
	ForwardCode      uint32 `msgpack:"fwd_code,omitempty"`
	ForwardKeysym    string `msgpack:"fwd_keysym,omitempty"`
	ForwardRune      int32  `msgpack:"fwd_rune,omitempty"`
	ForwardModifiers uint8  `msgpack:"fwd_mods,omitempty"`

	// delete_surrounding_text
	DeleteBefore int `msgpack:"delete_before,omitempty"`
	DeleteAfter  int `msgpack:"delete_after,omitempty"`

	// register_properties
	Properties []Property `msgpack:"properties,omitempty"`
}
