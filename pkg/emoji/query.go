package emoji

import (
	"sort"
	"strconv"
	"strings"
)

// codePointQuery recognizes a bare 4-6 hex digit query as a Unicode
// code point (spec §4.6: "a query of 4-6 hex digits additionally
// matches the single character with that code point"), with or
// without a conventional "U+" prefix.
func codePointQuery(raw string) (rune, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.ToUpper(s), "U+")
	if len(s) < 4 || len(s) > 6 {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// Result is one ranked emoji match.
type Result struct {
	Entry Entry
	Score float64
}

// TriggerStripped reports whether query carried the configured trigger
// character as a leading or trailing marker, returning the query with
// it removed (spec §4.6: "forces emoji lookup even when emoji mode is
// off").
func (idx *Index) TriggerStripped(query string) (string, bool) {
	if idx.triggerChar == "" {
		return query, false
	}
	switch {
	case strings.HasPrefix(query, idx.triggerChar):
		return strings.TrimPrefix(query, idx.triggerChar), true
	case strings.HasSuffix(query, idx.triggerChar):
		return strings.TrimSuffix(query, idx.triggerChar), true
	default:
		return query, false
	}
}

// Query resolves a keyword query (possibly multiple space-separated
// tokens) to ranked emoji, intersecting per-token matches and summing
// their scores (spec §4.6). A 4-6 hex digit query additionally matches
// the single character with that code point.
func (idx *Index) Query(raw string) []Result {
	if r, ok := codePointQuery(raw); ok {
		if i, found := idx.byCodepoint[r]; found {
			return []Result{{Entry: idx.entries[i], Score: 1}}
		}
	}

	tokens := normalize(raw)
	if len(tokens) == 0 {
		return nil
	}

	scores := map[int]float64{}
	matchedTokens := map[int]int{}
	for _, tok := range tokens {
		perEntry := idx.scoreToken(tok)
		for entryIdx, s := range perEntry {
			scores[entryIdx] += s
			matchedTokens[entryIdx]++
		}
	}

	var out []Result
	for entryIdx, count := range matchedTokens {
		if count < len(tokens) {
			continue // intersection: every token must match
		}
		out = append(out, Result{Entry: idx.entries[entryIdx], Score: scores[entryIdx]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// scoreToken scores tok against every keyword of every entry that
// shares at least one exact keyword bucket or is fuzzy-reachable,
// using the exact > prefix > substring > edit-distance-within-2 tiers
// of spec §4.6.
func (idx *Index) scoreToken(tok string) map[int]float64 {
	best := map[int]float64{}
	for kw, entryIdxs := range idx.keywordIndex {
		s, ok := tokenScore(tok, kw)
		if !ok {
			continue
		}
		for _, ei := range entryIdxs {
			if s > best[ei] {
				best[ei] = s
			}
		}
	}
	return best
}

const (
	tierExact        = 4.0
	tierPrefix       = 3.0
	tierSubstring    = 2.0
	tierEditDistance = 1.0
)

// tokenScore implements spec §4.6's tiered per-token scorer: "exact
// match > prefix match > substring match > edit-distance-within-2
// match, with score proportional to matched-length/candidate-name-
// length."
func tokenScore(query, candidate string) (float64, bool) {
	if candidate == "" {
		return 0, false
	}
	ratio := float64(min(len(query), len(candidate))) / float64(len(candidate))

	switch {
	case query == candidate:
		return tierExact * ratio, true
	case strings.HasPrefix(candidate, query):
		return tierPrefix * ratio, true
	case strings.Contains(candidate, query):
		return tierSubstring * ratio, true
	}
	if d := levenshtein(query, candidate); d <= 2 {
		return tierEditDistance * ratio / float64(d+1), true
	}
	return 0, false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// levenshtein computes the standard edit distance with a single
// rolling row, adequate for the short keyword strings scoreToken
// compares.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}
	prev := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr := make([]int, len(br)+1)
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = minInt3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[len(br)]
}

func minInt3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// Related returns emoji sharing at least one keyword or category with
// the entry at the given sequence, scored by overlap count (spec
// §4.6's "related(codepoint_seq)").
func (idx *Index) Related(sequence string) []Result {
	i, found := idx.bySequence[sequence]
	if !found {
		return nil
	}
	base := &idx.entries[i]

	baseKeywords := map[string]bool{}
	for _, k := range base.Keywords {
		for _, tok := range normalize(k) {
			baseKeywords[tok] = true
		}
	}

	overlap := map[int]int{}
	for i, e := range idx.entries {
		if e.Sequence == sequence {
			continue
		}
		count := 0
		if e.Category != "" && e.Category == base.Category {
			count++
		}
		for _, k := range e.Keywords {
			for _, tok := range normalize(k) {
				if baseKeywords[tok] {
					count++
				}
			}
		}
		if count > 0 {
			overlap[i] = count
		}
	}

	var out []Result
	for i, count := range overlap {
		out = append(out, Result{Entry: idx.entries[i], Score: float64(count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// skinToneModifiers maps the five Unicode skin-tone modifier code
// points to their CLDR label, for annotating variant results.
var skinToneModifiers = map[rune]string{
	0x1F3FB: "light",
	0x1F3FC: "medium-light",
	0x1F3FD: "medium",
	0x1F3FE: "medium-dark",
	0x1F3FF: "dark",
}

// SkinTone reports the skin-tone label carried by sequence's modifier
// code point, if it has one.
func SkinTone(sequence string) (string, bool) {
	for _, r := range sequence {
		if label, ok := skinToneModifiers[r]; ok {
			return label, true
		}
	}
	return "", false
}

// Variants returns the variant family declared for the entry at
// sequence: the base form plus every sibling skin-tone/gender sequence
// that resolves to a real indexed entry. An entry with no declared
// variant family, or whose variants don't resolve, returns just itself.
func (idx *Index) Variants(sequence string) []Entry {
	i, found := idx.bySequence[sequence]
	if !found {
		return nil
	}
	base := idx.entries[i]
	if len(base.Variants) == 0 {
		return []Entry{base}
	}
	out := make([]Entry, 0, len(base.Variants))
	for _, seq := range base.Variants {
		if vi, ok := idx.bySequence[seq]; ok {
			out = append(out, idx.entries[vi])
		}
	}
	if len(out) == 0 {
		return []Entry{base}
	}
	return out
}
