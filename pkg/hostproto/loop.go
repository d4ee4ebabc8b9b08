package hostproto

import (
	"fmt"
	"io"
	"strconv"

	"github.com/keyweave/inputcore/internal/logger"
	"github.com/keyweave/inputcore/pkg/candidate"
	"github.com/keyweave/inputcore/pkg/engine"
	"github.com/keyweave/inputcore/pkg/keymap"
)

var log = logger.New("hostproto")

// Conn pairs a Codec with the Engine it drives. Start runs the
// teacher-style synchronous read/dispatch/write loop (pkg/server/
// server.go's Start/handleRequest shape) until the host disconnects.
type Conn struct {
	codec *Codec
	eng   *engine.Engine
}

// NewConn builds a Conn ready to Start. It registers itself as the
// Engine's async host-action sink, so a debounced candidate production
// landing after HandleKeyEvent already returned still reaches the host:
// pushed straight onto the wire from whatever goroutine the debounce
// timer fires on, the same way PublishStats already writes out-of-band.
func NewConn(codec *Codec, eng *engine.Engine) *Conn {
	c := &Conn{codec: codec, eng: eng}
	eng.SetAsyncHostActionHandler(func(actions []engine.HostAction) {
		for _, out := range toOutbound(actions) {
			if err := codec.WriteOutbound(out); err != nil {
				log.Warnf("hostproto: async host action write failed: %v", err)
			}
		}
	})
	return c
}

// Start blocks reading Inbound messages and dispatching them to the
// Engine, writing back every resulting Outbound message, until the
// host closes its side (io.EOF, a clean shutdown) or a read fails.
func (c *Conn) Start() error {
	for {
		in, err := c.codec.ReadInbound()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("hostproto: read inbound: %w", err)
		}
		for _, out := range c.handle(in) {
			if werr := c.codec.WriteOutbound(out); werr != nil {
				return fmt.Errorf("hostproto: write outbound: %w", werr)
			}
		}
	}
}

// handle maps one Inbound message onto Engine calls and renders the
// resulting engine.HostAction values as Outbound wire messages. Per
// spec §7's propagation policy, nothing here can fail the connection —
// an unrecognized or malformed inbound message is logged and ignored.
func (c *Conn) handle(in Inbound) []Outbound {
	switch in.Kind {
	case InKeyEvent:
		ev := keymap.KeyEvent{
			Code:        in.Code,
			Keysym:      in.Keysym,
			Rune:        rune(in.Rune),
			Modifiers:   keymap.Modifiers(in.Modifiers),
			IsRelease:   in.IsRelease,
			IsForwarded: in.IsForwarded,
		}
		return toOutbound(c.eng.HandleKeyEvent(ev))

	case InFocusIn:
		c.eng.FocusIn(in.IsPassword, in.IgnoredTerminal)
		return nil

	case InFocusOut:
		c.eng.FocusOut()
		return nil

	case InSetSurroundingText:
		c.eng.SetSurroundingText(in.Text, in.Cursor)
		return nil

	case InEnable, InDisable, InPropertyActivate:
		// No engine-level behavior differs by enable/disable/property
		// state today; reserved for host-specific property wiring.
		return nil

	default:
		log.Warnf("unrecognized inbound message kind %q", in.Kind)
		return nil
	}
}

// PublishStats writes one register_properties message reporting the
// engine's current UserDB/CandidateEngine debug statistics (SPEC_FULL's
// statistics supplement, spec §6's register_properties: forwarded to
// the host, not interpreted here). Intended to be called periodically
// by the caller (cmd/inputengined), not by the event loop itself.
func (c *Conn) PublishStats() error {
	stats, err := c.eng.Stats()
	if err != nil {
		return fmt.Errorf("hostproto: gather stats: %w", err)
	}
	return c.codec.WriteOutbound(Outbound{
		Kind:       OutRegisterProperties,
		Properties: statsProperties(stats),
	})
}

func statsProperties(s engine.Stats) []Property {
	return []Property{
		{Name: "userdb_entries", Label: "UserDB entries", State: strconv.Itoa(s.UserDB.EntryCount)},
		{Name: "userdb_hit_rate", Label: "UserDB lookup hit rate", State: strconv.FormatFloat(s.UserDB.HitRate(), 'f', 3, 64)},
		{Name: "candidate_produce_count", Label: "Candidate productions", State: strconv.FormatInt(s.Candidate.ProduceCount, 10)},
		{Name: "candidate_avg_latency_ms", Label: "Avg candidate latency (ms)", State: strconv.FormatFloat(float64(s.Candidate.AvgLatency.Microseconds())/1000, 'f', 3, 64)},
	}
}

func toOutbound(actions []engine.HostAction) []Outbound {
	out := make([]Outbound, 0, len(actions))
	for _, a := range actions {
		out = append(out, fromHostAction(a))
	}
	return out
}

func fromHostAction(a engine.HostAction) Outbound {
	switch a.Kind {
	case engine.ActionCommitText:
		return Outbound{Kind: OutCommitText, Text: a.Text}

	case engine.ActionUpdatePreedit:
		return Outbound{
			Kind:    OutUpdatePreedit,
			Text:    a.Preedit,
			Cursor:  a.CursorIndex,
			Visible: a.Preedit != "",
		}

	case engine.ActionUpdateCandidates:
		return Outbound{
			Kind:       OutUpdateCandidates,
			Candidates: wireCandidates(a.Candidates),
			Page:       a.Page,
			Visible:    len(a.Candidates) > 0,
		}

	case engine.ActionUpdateAuxiliary:
		return Outbound{Kind: OutUpdateAuxiliary, Text: a.Auxiliary, Visible: a.Auxiliary != ""}

	case engine.ActionForwardKeyEvent:
		ev := a.ForwardEvent
		return Outbound{
			Kind:             OutForwardKeyEvent,
			ForwardCode:      ev.Code,
			ForwardKeysym:    ev.Keysym,
			ForwardRune:      int32(ev.Rune),
			ForwardModifiers: uint8(ev.Modifiers),
		}

	case engine.ActionDeleteSurroundingText:
		return Outbound{
			Kind:         OutDeleteSurroundingText,
			DeleteBefore: a.DeleteBefore,
			DeleteAfter:  a.DeleteAfter,
		}

	default:
		return Outbound{}
	}
}

func wireCandidates(cands []candidate.Candidate) []WireCandidate {
	out := make([]WireCandidate, 0, len(cands))
	for _, cand := range cands {
		out = append(out, WireCandidate{
			Text:      cand.Text,
			Source:    cand.Source.String(),
			Score:     cand.Score,
			CodePoint: cand.Annotation.CodePoint,
		})
	}
	return out
}
