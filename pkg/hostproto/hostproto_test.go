package hostproto

import (
	"bytes"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/keyweave/inputcore/pkg/candidate"
	"github.com/keyweave/inputcore/pkg/engine"
	"github.com/keyweave/inputcore/pkg/keymap"
	"github.com/keyweave/inputcore/pkg/userdb"
)

func TestCodecReadsInboundKeyEvent(t *testing.T) {
	want := Inbound{Kind: InKeyEvent, Keysym: "h", Rune: 'h', Modifiers: uint8(keymap.ModShift)}
	encoded, err := msgpack.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	codec := NewCodec(bytes.NewReader(encoded), nil)
	got, err := codec.ReadInbound()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestCodecWritesOutboundCommitText(t *testing.T) {
	var buf bytes.Buffer
	codec := NewCodec(nil, &buf)
	if err := codec.WriteOutbound(Outbound{Kind: OutCommitText, Text: "hello"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got Outbound
	if err := msgpack.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != OutCommitText || got.Text != "hello" {
		t.Fatalf("want commit_text('hello'), got %+v", got)
	}
}

func TestFromHostActionCommitText(t *testing.T) {
	out := fromHostAction(engine.HostAction{Kind: engine.ActionCommitText, Text: "hello"})
	if out.Kind != OutCommitText || out.Text != "hello" {
		t.Fatalf("want commit_text('hello'), got %+v", out)
	}
}

func TestFromHostActionUpdateCandidatesRendersWireForm(t *testing.T) {
	action := engine.HostAction{
		Kind: engine.ActionUpdateCandidates,
		Candidates: []candidate.Candidate{
			{Text: "hello", Source: candidate.SourceUserDB, Score: 1.0},
		},
	}
	out := fromHostAction(action)
	if out.Kind != OutUpdateCandidates || len(out.Candidates) != 1 {
		t.Fatalf("want one wire candidate, got %+v", out)
	}
	if out.Candidates[0].Source != "user_db" {
		t.Fatalf("want rendered source name, got %q", out.Candidates[0].Source)
	}
}

func TestStatsPropertiesRendersEntryCountAndLatency(t *testing.T) {
	stats := engine.Stats{
		UserDB:    userdb.Stats{EntryCount: 42, LookupCount: 4, HitCount: 2},
		Candidate: candidate.Stats{ProduceCount: 10, AvgLatency: 2500 * time.Microsecond},
	}
	props := statsProperties(stats)
	byName := map[string]Property{}
	for _, p := range props {
		byName[p.Name] = p
	}
	if byName["userdb_entries"].State != "42" {
		t.Fatalf("want userdb_entries=42, got %+v", byName["userdb_entries"])
	}
	if byName["userdb_hit_rate"].State != "0.500" {
		t.Fatalf("want userdb_hit_rate=0.500, got %+v", byName["userdb_hit_rate"])
	}
	if byName["candidate_produce_count"].State != "10" {
		t.Fatalf("want candidate_produce_count=10, got %+v", byName["candidate_produce_count"])
	}
	if byName["candidate_avg_latency_ms"].State != "2.500" {
		t.Fatalf("want candidate_avg_latency_ms=2.500, got %+v", byName["candidate_avg_latency_ms"])
	}
}

func TestFromHostActionForwardKeyEvent(t *testing.T) {
	action := engine.HostAction{
		Kind:         engine.ActionForwardKeyEvent,
		ForwardEvent: keymap.KeyEvent{Keysym: "Escape"},
	}
	out := fromHostAction(action)
	if out.Kind != OutForwardKeyEvent || out.ForwardKeysym != "Escape" {
		t.Fatalf("want forwarded keysym 'Escape', got %+v", out)
	}
}
