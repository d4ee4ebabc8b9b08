package engine

import "github.com/keyweave/inputcore/pkg/userdb"

// writeRequest is one queued UserDB mutation. Only one of commit/forget/
// decayNow is set per request.
type writeRequest struct {
	commit         *commitRequest
	forget         *forgetRequest
	decayNow       int64
	decayRequested bool
}

type commitRequest struct {
	phrase, context1, context2 string
	now                        int64
}

type forgetRequest struct {
	phrase, context1, context2 string
}

// userDBWriter is spec §5's single long-lived UserDB-writer worker:
// "commits push messages into its queue; the event loop does not wait."
// A single goroutine drains the queue and serializes every write against
// db.writeMu internally, so queuing here only buffers against bursts of
// fast typing, not against lock contention.
type userDBWriter struct {
	db    *userdb.DB
	queue chan writeRequest
	done  chan struct{}
}

func newUserDBWriter(db *userdb.DB) *userDBWriter {
	return &userDBWriter{
		db:    db,
		queue: make(chan writeRequest, 64),
		done:  make(chan struct{}),
	}
}

func (w *userDBWriter) start() {
	go w.loop()
}

func (w *userDBWriter) stop() {
	close(w.queue)
	<-w.done
}

func (w *userDBWriter) loop() {
	defer close(w.done)
	for req := range w.queue {
		switch {
		case req.commit != nil:
			c := req.commit
			if err := w.db.RecordCommit(c.phrase, c.context1, c.context2, c.now); err != nil {
				log.Warnf("userdb commit failed for %q: %v", c.phrase, err)
			}
		case req.forget != nil:
			f := req.forget
			if err := w.db.Forget(f.phrase, f.context1, f.context2); err != nil {
				log.Warnf("userdb forget failed for %q: %v", f.phrase, err)
			}
		case req.decayRequested:
			if err := w.db.DecayPass(req.decayNow); err != nil {
				log.Warnf("userdb decay pass failed: %v", err)
			}
		}
	}
}

// Commit enqueues a RecordCommit without blocking the event loop.
func (w *userDBWriter) Commit(phrase, context1, context2 string, now int64) {
	select {
	case w.queue <- writeRequest{commit: &commitRequest{phrase, context1, context2, now}}:
	default:
		log.Warnf("userdb writer queue full, dropping commit for %q", phrase)
	}
}

// Forget enqueues a Forget without blocking the event loop.
func (w *userDBWriter) Forget(phrase, context1, context2 string) {
	select {
	case w.queue <- writeRequest{forget: &forgetRequest{phrase, context1, context2}}:
	default:
		log.Warnf("userdb writer queue full, dropping forget for %q", phrase)
	}
}

// DecayPass enqueues a decay pass. Called periodically by cmd/inputengined,
// not by the event loop itself.
func (w *userDBWriter) DecayPass(now int64) {
	select {
	case w.queue <- writeRequest{decayNow: now, decayRequested: true}:
	default:
		log.Warnf("userdb writer queue full, dropping decay pass")
	}
}
