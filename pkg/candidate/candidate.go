// Package candidate implements the CandidateEngine of spec §4.7: it
// queries UserDB, Dictionaries, and EmojiIndex, merges and deduplicates
// their results, and paginates the ranked list.
package candidate

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/keyweave/inputcore/internal/logger"
	"github.com/keyweave/inputcore/internal/utils"
	"github.com/keyweave/inputcore/pkg/dictionary"
	"github.com/keyweave/inputcore/pkg/emoji"
	"github.com/keyweave/inputcore/pkg/userdb"
)

var log = logger.New("candidate")

// Source identifies which component produced a Candidate, and doubles
// as the tie-break priority ordering of spec §3/§4.7 (lower is better).
type Source int

const (
	SourceUserDB Source = iota
	SourceDictionary
	SourceSpellcheck
	SourceEmoji
	SourceRelated
	SourceComposeCompletion
)

func (s Source) String() string {
	switch s {
	case SourceUserDB:
		return "user_db"
	case SourceDictionary:
		return "dictionary"
	case SourceSpellcheck:
		return "spellcheck"
	case SourceEmoji:
		return "emoji"
	case SourceRelated:
		return "related"
	case SourceComposeCompletion:
		return "compose_completion"
	default:
		return "unknown"
	}
}

// Annotation carries the optional per-candidate metadata named by
// spec §3: a code point, a language tag, or a skin-tone variant.
type Annotation struct {
	CodePoint string
	Language  string
	SkinTone  string
}

// Candidate mirrors spec §3's Candidate type.
type Candidate struct {
	Text       string
	Source     Source
	Score      float64
	Annotation Annotation
	Rank       int
}

// dedupeKey identifies a candidate for deduplication: spec §3's invariant is
// "no two entries have the same (text, source)" pre-merge, but distinct
// sources merge into one entry per text.
func dedupeKey(text string) string { return strings.ToLower(text) }

// Options configures one candidate-production request (spec §4.7's
// "options" parameter).
type Options struct {
	PageSize      int
	Page          int
	EmojiEnabled  bool
	InlineEnabled bool
	AutoSelect    bool
	Now           int64
}

const defaultPageSize = 6

func (o Options) pageSize() int {
	if o.PageSize > 0 {
		return o.PageSize
	}
	return defaultPageSize
}

// Engine merges candidates from every source per spec §4.7's numbered
// algorithm.
type Engine struct {
	userDB  *userdb.DB
	dict    *dictionary.Set
	emoji   *emoji.Index
	context Context

	produceCount atomic.Int64
	totalNanos   atomic.Int64
}

// Stats is CandidateEngine's read-only debug-property surface
// (SPEC_FULL's statistics supplement): how many times Produce ran and
// its running average latency.
type Stats struct {
	ProduceCount int64
	AvgLatency   time.Duration
}

// Stats reports CandidateEngine's running candidate-production count
// and average latency.
func (e *Engine) Stats() Stats {
	count := e.produceCount.Load()
	if count == 0 {
		return Stats{}
	}
	return Stats{
		ProduceCount: count,
		AvgLatency:   time.Duration(e.totalNanos.Load() / count),
	}
}

// Context tracks the up-to-two previously committed tokens used as
// bigram/trigram context (spec §3).
type Context struct {
	Context1 string
	Context2 string
}

// Shift pushes text as the new most-recent commit, per spec §4.8's
// "shift context window (context2 <- context1; context1 <- committed_text)".
func (c *Context) Shift(text string) {
	c.Context2 = c.Context1
	c.Context1 = text
}

// Clear invalidates context (spec §3: "cleared when surrounding text
// differs from expectation after a focus or cursor jump").
func (c *Context) Clear() { *c = Context{} }

// NewEngine builds an Engine over the given component sources. db and
// emojiIdx may be nil if the engine was configured without a user
// database or emoji support.
func NewEngine(db *userdb.DB, dict *dictionary.Set, emojiIdx *emoji.Index) *Engine {
	return &Engine{userDB: db, dict: dict, emoji: emojiIdx}
}

// Context returns the engine's mutable commit-context window.
func (e *Engine) Context() *Context { return &e.context }

// Produce runs spec §4.7's 1-7 merge/rank/dedup/paginate algorithm over
// the given canonical prefix views. prefixViews is the set of active
// transliteration views (spec §4.2) to query UserDB/Dictionaries with;
// it is usually just the canonical string, but every active view is
// queried.
func (e *Engine) Produce(ctx context.Context, prefixViews []string, opts Options) []Candidate {
	start := time.Now()
	defer func() {
		e.produceCount.Add(1)
		e.totalNanos.Add(int64(time.Since(start)))
	}()

	pageSize := opts.pageSize()
	merged := map[string]*Candidate{}

	upsert := func(text string, source Source, score float64, ann Annotation) {
		k := dedupeKey(text)
		if existing, ok := merged[k]; ok {
			if score > existing.Score {
				existing.Score = score
			}
			if source < existing.Source {
				existing.Source = source
				existing.Annotation = ann
			}
			return
		}
		merged[k] = &Candidate{Text: text, Source: source, Score: score, Annotation: ann}
	}

	// 1. UserDB, merged by phrase keeping the max score.
	if e.userDB != nil {
		for _, prefix := range prefixViews {
			if ctx.Err() != nil {
				return nil
			}
			entries, err := e.userDB.Lookup(prefix, e.context.Context1, e.context.Context2, opts.Now, pageSize*2)
			if err != nil {
				log.Errorf("userdb lookup failed: %v", err)
				continue
			}
			for _, entry := range entries {
				upsert(entry.Phrase, SourceUserDB, entry.Score, Annotation{})
			}
		}
	}

	// 2. Dictionary completions, only if still short. Skip prefixes that
	// are pure digits, contain any character other than letters, digits
	// and separators, or repeat one character: utils.IsValidInput
	// rejects those, and no dictionary query is made for them.
	if e.dict != nil && len(merged) < pageSize*2 {
		for _, prefix := range prefixViews {
			if !utils.IsValidInput(prefix) {
				continue
			}
			for _, word := range e.dict.LookupAll(prefix) {
				upsert(word, SourceDictionary, dictionaryBaseScore, Annotation{})
			}
		}
	}

	// 3. Spell-correction suggestions, only if still short. A suggestion
	// equal to what the user already typed isn't a correction.
	if e.dict != nil && len(merged) < pageSize*2 && len(prefixViews) > 0 && utils.IsValidInput(prefixViews[0]) {
		seen := utils.NewSuggestionFilter(prefixViews[0])
		for _, word := range e.dict.SuggestAll(prefixViews[0]) {
			if !seen.ShouldInclude(word) {
				continue
			}
			upsert(word, SourceSpellcheck, spellcheckBaseScore, Annotation{})
		}
	}

	// 4. EmojiIndex, if emoji mode is enabled or a trigger char forced it.
	if e.emoji != nil && len(prefixViews) > 0 {
		query := prefixViews[0]
		stripped, triggered := e.emoji.TriggerStripped(query)
		if opts.EmojiEnabled || triggered {
			for _, m := range e.emoji.Query(stripped) {
				upsert(m.Entry.Sequence, SourceEmoji, m.Score, Annotation{CodePoint: m.Entry.Sequence})
			}
		}
	}

	// 5-6. Flatten, sort desc by score, tie-break by source then text.
	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Text < out[j].Text
	})
	for i, rank := range utils.CreateRankList(len(out)) {
		out[i].Rank = int(rank) - 1
	}

	// 7. Paginate.
	return paginate(out, opts.Page, pageSize)
}

const (
	dictionaryBaseScore = 0.5
	spellcheckBaseScore = 0.2
)

func paginate(candidates []Candidate, page, pageSize int) []Candidate {
	if pageSize <= 0 {
		return candidates
	}
	start := page * pageSize
	if start >= len(candidates) {
		return nil
	}
	end := start + pageSize
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[start:end]
}

// inlineConfidenceThreshold is calibrated against userdb.Score's output
// range (frequency decay term plus a context bonus capped at 1.0): a
// score above 1.0 is more than the largest context bonus alone gives,
// so it needs decayed frequency on top of whatever bonus applies, which
// is the bar spec §4.7 calls "exceeds a confidence threshold" for
// inline mode.
const inlineConfidenceThreshold = 1.0

// Inline implements spec §4.7's inline-mode rule: the first candidate
// is returned standalone if its score clears the confidence threshold
// and its text strictly extends canonicalPrefix.
func Inline(candidates []Candidate, canonicalPrefix string, enabled bool) (Candidate, bool) {
	if !enabled || len(candidates) == 0 {
		return Candidate{}, false
	}
	first := candidates[0]
	if first.Score < inlineConfidenceThreshold {
		return Candidate{}, false
	}
	if !strings.HasPrefix(first.Text, canonicalPrefix) || first.Text == canonicalPrefix {
		return Candidate{}, false
	}
	return first, true
}

// Related produces candidates for the lookup_related command (spec
// §4.1/§4.6): emoji sharing a keyword or category with sequence.
func (e *Engine) Related(sequence string) []Candidate {
	if e.emoji == nil {
		return nil
	}
	matches := e.emoji.Related(sequence)
	out := make([]Candidate, len(matches))
	for i, m := range matches {
		out[i] = Candidate{
			Text:       m.Entry.Sequence,
			Source:     SourceRelated,
			Score:      m.Score,
			Annotation: Annotation{CodePoint: m.Entry.Sequence},
			Rank:       i,
		}
	}
	return out
}

// Variants produces candidates for the skin-tone/gender variant family
// of the emoji at sequence (SPEC_FULL supplemented feature #1), each
// annotated with its skin-tone label when it carries one.
func (e *Engine) Variants(sequence string) []Candidate {
	if e.emoji == nil {
		return nil
	}
	entries := e.emoji.Variants(sequence)
	out := make([]Candidate, len(entries))
	for i, entry := range entries {
		ann := Annotation{CodePoint: entry.Sequence}
		if tone, ok := emoji.SkinTone(entry.Sequence); ok {
			ann.SkinTone = tone
		}
		out[i] = Candidate{
			Text:       entry.Sequence,
			Source:     SourceRelated,
			Score:      float64(len(entries) - i),
			Annotation: ann,
			Rank:       i,
		}
	}
	return out
}

// AutoSelected returns the index that should be pre-selected when
// auto-select is enabled, or -1 when disabled or the list is empty
// (spec §4.7's "Auto-select").
func AutoSelected(candidates []Candidate, enabled bool) int {
	if !enabled || len(candidates) == 0 {
		return -1
	}
	return 0
}
