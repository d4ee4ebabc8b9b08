package preedit

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/keyweave/inputcore/internal/jobs"
	"github.com/keyweave/inputcore/internal/logger"
	"github.com/keyweave/inputcore/internal/utils"
	"github.com/keyweave/inputcore/pkg/candidate"
	"github.com/keyweave/inputcore/pkg/compose"
	"github.com/keyweave/inputcore/pkg/keymap"
)

var log = logger.New("preedit")

// State is the PreeditController's own state (spec §4.8: Empty/Editing).
type State int

const (
	StateEmpty State = iota
	StateEditing
)

// HostCommit is what the controller asks the host to do when an
// Editing session ends with a commit (spec §4.8).
type HostCommit struct {
	Text string
}

// action is one entry of the controller's undo log (spec §4.8: "a
// small action log enabling undo").
type action struct {
	kind    string // "insert", "backspace", "commit", "cancel"
	raw     rune
	removed Token
}

// FocusState tracks the surrounding-text reliability bookkeeping spec
// §4.8's reopen-preedit rule needs.
type FocusState struct {
	CommitsThisSession int
	SurroundingText    string
	CursorOffset       int
	IsPassword         bool
	IgnoredTerminal    bool
}

// reliable reports whether the current focus session's surrounding-
// text signals are trustworthy enough to reopen a preedit over
// (spec §4.8: "≥ 1 commit in this focus session, consistent key/
// surrounding-text deltas, not an ignored-terminal/password input
// class").
func (f FocusState) reliable() bool {
	return f.CommitsThisSession >= 1 && !f.IsPassword && !f.IgnoredTerminal
}

// Options configures controller behavior (spec §4.8).
type Options struct {
	AutoCommitChars map[rune]bool
	AutoCapitalize  bool
	DebounceDelay   time.Duration
	CandidateOpts   candidate.Options
}

func (o Options) debounce() time.Duration {
	if o.DebounceDelay > 0 {
		return o.DebounceDelay
	}
	return 200 * time.Millisecond
}

// Controller is spec §4.8's PreeditController: the single owner of the
// live Preedit, ComposeState, and latest candidate list.
//
// Every method above is called from the single event-loop goroutine
// except runProduce, which a debounce timer fires on its own goroutine
// once the delay elapses. mu guards the fields runProduce and the
// event-loop methods both touch (candidates, selected) so the two never
// race.
type Controller struct {
	state   State
	buf     *Buffer
	compose *compose.Engine
	cands   *candidate.Engine
	opts    Options

	mu         sync.Mutex
	candidates []candidate.Candidate
	selected   int // -1 = none selected

	focus FocusState
	log   []action

	jobs      *jobs.Tracker
	timer     *time.Timer
	onReady   func()
	lastKeyAt time.Time
}

// New builds a Controller over buf, an optional compose engine (nil
// disables compose entirely), and the candidate engine that backs
// production.
func New(buf *Buffer, composeEngine *compose.Engine, candEngine *candidate.Engine, opts Options) *Controller {
	return &Controller{
		buf:      buf,
		compose:  composeEngine,
		cands:    candEngine,
		opts:     opts,
		selected: -1,
		jobs:     jobs.New(),
	}
}

// State returns the controller's current Empty/Editing state.
func (c *Controller) State() State { return c.state }

// Buffer exposes the live Preedit for read-only UI rendering.
func (c *Controller) Buffer() *Buffer { return c.buf }

// Candidates returns the latest produced candidate list.
func (c *Controller) Candidates() []candidate.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.candidates
}

// Selected returns the selected candidate's index, or -1.
func (c *Controller) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// OnCandidatesReady registers fn to be invoked, from the debounce
// timer's own goroutine rather than the event loop's, whenever a
// debounced candidate production lands and is not stale. The caller
// (pkg/engine) uses this to push the refreshed candidates to the host
// outside HandleKeyEvent's synchronous return value, which has already
// returned by the time the timer fires.
func (c *Controller) OnCandidatesReady(fn func()) {
	c.onReady = fn
}

// InsertRaw implements the Empty/Editing -> insert_raw transitions.
// It first offers the key to the ComposeEngine; a live or resolved
// outcome is consumed there rather than appended to the preedit
// (spec §4.8: "if ComposeEngine wants the key, delegate").
func (c *Controller) InsertRaw(ev keymap.KeyEvent) {
	c.lastKeyAt = time.Now()

	if c.compose != nil && (c.compose.InProgress() || composeWouldStart(c.compose, ev.Keysym)) {
		outcome := c.compose.Feed(ev.Keysym, ev.Rune)
		switch outcome.State {
		case compose.StateLive:
			return
		case compose.StateResolved:
			for _, r := range outcome.Result {
				c.appendRune(r)
			}
			return
		case compose.StateError:
			return
		}
	}

	if c.autoCommitChar(ev.Rune) {
		return
	}
	c.appendRune(ev.Rune)
}

// composeWouldStart reports whether keysym could begin a new compose
// sequence, so a fresh key is only routed through the engine when it
// stands a chance of being dead-key/compose input.
func composeWouldStart(eng *compose.Engine, keysym string) bool {
	return eng.Prefix() != nil || len(keysym) > 0 && strings.HasPrefix(keysym, "dead_")
}

func (c *Controller) appendRune(r rune) {
	wasEmpty := c.buf.Empty()
	if wasEmpty && c.opts.AutoCapitalize && c.shouldCapitalize() {
		r = unicode.ToUpper(r)
	}
	c.buf.Insert(r)
	c.log = append(c.log, action{kind: "insert", raw: r})
	if wasEmpty {
		c.state = StateEditing
	}
	c.scheduleProduce()
}

// shouldCapitalize implements spec §4.8's auto-capitalize rule: the
// first character of a new Editing session is promoted to uppercase
// when the prior committed context ends with a sentence terminator.
func (c *Controller) shouldCapitalize() bool {
	ctx := c.cands.Context().Context1
	if ctx == "" {
		return true // start of input counts as sentence start
	}
	last := []rune(ctx)[len([]rune(ctx))-1]
	return last == '.' || last == '!' || last == '?'
}

func (c *Controller) autoCommitChar(r rune) bool {
	if c.buf.Empty() || c.opts.AutoCommitChars == nil || !c.opts.AutoCommitChars[r] {
		return false
	}
	c.Commit(nil)
	c.buf.Insert(r)
	c.buf.Insert(' ')
	c.Commit(nil)
	return true
}

// Backspace implements Editing -> backspace.
func (c *Controller) Backspace() {
	if c.compose != nil && c.compose.InProgress() {
		c.compose.Backspace()
		return
	}
	removed, ok := c.buf.PeekBefore()
	if !ok || !c.buf.Backspace() {
		return
	}
	c.log = append(c.log, action{kind: "backspace", removed: removed})
	if c.buf.Empty() {
		c.state = StateEmpty
		c.clearCandidates()
		return
	}
	c.scheduleProduce()
}

// clearCandidates drops the candidate list and selection, superseding
// any in-flight debounce timer so its eventual result is discarded.
func (c *Controller) clearCandidates() {
	c.jobs.Next()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Lock()
	c.candidates = nil
	c.selected = -1
	c.mu.Unlock()
}

// Commit implements Editing -> commit. If chosen is non-nil its text
// is committed instead of the canonical preedit string (spec §4.8:
// "serialize chosen text (candidate or canonical preedit)").
func (c *Controller) Commit(chosen *candidate.Candidate) HostCommit {
	original := c.buf.Canonical()
	text := original
	if chosen != nil {
		text = chosen.Text
	} else if sel := c.Selected(); sel >= 0 {
		if cands := c.Candidates(); sel < len(cands) {
			text = cands[sel].Text
		}
	}
	if text != original {
		text = preserveCapitalization(original, text)
	}

	c.log = append(c.log, action{kind: "commit"})
	c.cands.Context().Shift(text)
	c.focus.CommitsThisSession++

	c.buf.Reset()
	c.clearCandidates()
	c.state = StateEmpty
	return HostCommit{Text: text}
}

// preserveCapitalization reapplies the capital-letter pattern of what
// the user actually typed onto a replacement candidate: dictionary and
// spellcheck sources come back lowercase, so "Wrold" corrected to
// "world" should commit as "World".
func preserveCapitalization(original, replacement string) string {
	_, infoCh := utils.ProcessCapitals(original)
	info := <-infoCh
	if info == nil {
		return replacement
	}
	return <-utils.ApplyCapitals(replacement, info)
}

// Cancel implements Editing -> cancel: clear the candidate selection
// first, and only clear the preedit if nothing was selected.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.selected >= 0 {
		c.selected = -1
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.log = append(c.log, action{kind: "cancel"})
	c.buf.Reset()
	c.clearCandidates()
	c.state = StateEmpty
}

// CursorLeft/CursorRight implement Editing -> cursor_left/right.
// atEdgeForward reports (for cursor_right) whether the controller hit
// the right edge, letting the host auto-commit or forward the key.
func (c *Controller) CursorLeft() (atEdge bool) { return c.buf.CursorLeft() }
func (c *Controller) CursorRight() (atEdge bool) { return c.buf.CursorRight() }

// SelectNext/SelectPrevious move the candidate selection, wrapping.
func (c *Controller) SelectNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.candidates) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.candidates)
}

func (c *Controller) SelectPrevious() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.candidates) == 0 {
		return
	}
	if c.selected <= 0 {
		c.selected = len(c.candidates) - 1
		return
	}
	c.selected--
}

// scheduleProduce issues a new job id, superseding any in-flight
// production, and (re)starts the debounce timer so candidate production
// runs opts.debounce() after the most recent keystroke rather than
// after every one (spec §5's "candidate delay"). A keystroke arriving
// before the timer fires restarts it and bumps the job id, so
// runProduce's later IsCurrent check discards the superseded timer's
// result even if Stop loses the race with an already-firing one.
func (c *Controller) scheduleProduce() {
	id := c.jobs.Next()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.opts.debounce(), func() { c.runProduce(id) })
}

// runProduce runs candidate production for id. It is invoked by the
// debounce timer on its own goroutine, after HandleKeyEvent's call that
// scheduled it has already returned, so a non-stale result is delivered
// through onReady instead of a return value.
func (c *Controller) runProduce(id jobs.ID) {
	views := c.buf.Views()
	prefixes := make([]string, 0, len(views))
	for _, v := range views {
		prefixes = append(prefixes, v)
	}
	result := c.cands.Produce(context.Background(), prefixes, c.opts.CandidateOpts)

	c.mu.Lock()
	if !c.jobs.IsCurrent(id) {
		c.mu.Unlock()
		log.Debugf("discarding stale candidate production for job %v", id)
		return
	}
	c.candidates = result
	if candidate.AutoSelected(result, c.opts.CandidateOpts.AutoSelect) == 0 {
		c.selected = 0
	} else {
		c.selected = -1
	}
	c.mu.Unlock()

	if c.onReady != nil {
		c.onReady()
	}
}

// ReopenPreedit implements spec §4.8's reopen-preedit rule: if the
// focus session's surrounding-text signals are reliable and the
// cursor touches word, delete it via deleteSurrounding and repopulate
// the buffer with its characters.
func (c *Controller) ReopenPreedit(word string, deleteSurrounding func(word string) bool) bool {
	if !c.focus.reliable() {
		return false
	}
	if word == "" {
		return false
	}
	if !deleteSurrounding(word) {
		return false
	}
	c.buf.Reset()
	for _, r := range word {
		c.buf.Insert(r)
	}
	c.state = StateEditing
	c.scheduleProduce()
	return true
}

// SetFocus updates the focus/surrounding-text bookkeeping. A focus_in
// or focus_out event with different surrounding-text characteristics
// invalidates context (spec §3: "cleared when surrounding text
// differs from expectation after a focus or cursor jump").
func (c *Controller) SetFocus(f FocusState) {
	if f.SurroundingText != c.focus.SurroundingText {
		c.cands.Context().Clear()
	}
	c.focus = f
}

// Undo reverts the most recent logged action, if any.
func (c *Controller) Undo() bool {
	if len(c.log) == 0 {
		return false
	}
	last := c.log[len(c.log)-1]
	c.log = c.log[:len(c.log)-1]
	switch last.kind {
	case "insert":
		c.buf.Backspace()
	case "backspace":
		c.buf.Insert(last.removed.Raw)
	default:
		return false
	}
	return true
}
