// Package jobs implements the message-passing job/cancellation primitive
// described in spec §5 and Design Notes §9: "implement as message-passing
// jobs with explicit job-id cancellation rather than implicit async
// cancellation." A Tracker hands out monotonically-advancing job ids and
// lets the single-threaded event loop cheaply decide whether a worker's
// result is still wanted.
package jobs

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// ID identifies one round of background work (a candidate-production
// request, a UserDB write). The event loop compares results against the
// latest issued ID to implement the "discard stale results" rule of §5.
type ID struct {
	Seq   uint64
	Token string
}

// Tracker issues job ids and tracks which one is current. It is owned by
// the event loop goroutine; Current is read by workers without locking
// since uint64 loads/stores are atomic and staleness checks are advisory
// (a worker finishing a half-tick late just gets its result dropped).
type Tracker struct {
	seq     atomic.Uint64
	current atomic.Uint64
}

// New allocates a Tracker starting at sequence 0 (no job issued yet).
func New() *Tracker {
	return &Tracker{}
}

// Next issues a new job id and makes it current, superseding any
// outstanding job. This is how the candidate debounce timer "replaces the
// job id rather than actually waiting" when a new key arrives (§5).
func (t *Tracker) Next() ID {
	seq := t.seq.Add(1)
	t.current.Store(seq)
	return ID{Seq: seq, Token: uuid.NewString()}
}

// IsCurrent reports whether id is still the latest issued job. A worker
// calls this just before posting its result back to the event loop.
func (t *Tracker) IsCurrent(id ID) bool {
	return t.current.Load() == id.Seq
}

// Current returns the most recently issued sequence number.
func (t *Tracker) Current() uint64 {
	return t.current.Load()
}
