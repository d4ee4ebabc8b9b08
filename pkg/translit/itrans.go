package translit

import (
	"strings"
	"unicode"
)

// ITRANSDevanagari is a simplified ITRANS-scheme Latin-to-Devanagari
// method (spec §8 scenario 2: typing "guru" under "hi-itrans" must
// candidate गुरु alongside the NoIME "guru"). It is a greedy
// longest-match tokenizer over the ITRANS atom table followed by
// Devanagari composition (inherent vowel, dependent matras, virama for
// consonant clusters).
type ITRANSDevanagari struct {
	pending []rune // raw keys fed since the last Reset, for Feed's incremental view
}

func NewITRANSDevanagari() *ITRANSDevanagari { return &ITRANSDevanagari{} }

func (*ITRANSDevanagari) Name() string { return "hi-itrans" }

// consonants maps an ITRANS consonant atom to its bare Devanagari
// glyph, which already carries the inherent "a" vowel when standalone.
var consonants = map[string]string{
	"k": "क", "kh": "ख", "g": "ग", "gh": "घ", "ng": "ङ",
	"ch": "च", "chh": "छ", "j": "ज", "jh": "झ",
	"t": "त", "th": "थ", "d": "द", "dh": "ध", "n": "न",
	"T": "ट", "Th": "ठ", "D": "ड", "Dh": "ढ", "N": "ण",
	"p": "प", "ph": "फ", "f": "फ", "b": "ब", "bh": "भ", "m": "म",
	"y": "य", "r": "र", "l": "ल", "v": "व", "w": "व",
	"sh": "श", "Sh": "ष", "s": "स", "h": "ह", "L": "ळ",
}

// independentVowels is used when a vowel atom has no preceding
// consonant to attach to.
var independentVowels = map[string]string{
	"a": "अ", "aa": "आ", "A": "आ", "i": "इ", "ii": "ई", "I": "ई",
	"u": "उ", "uu": "ऊ", "U": "ऊ", "e": "ए", "ai": "ऐ",
	"o": "ओ", "au": "औ",
}

// matras is the dependent vowel sign attached after a consonant. "a"
// has no visible matra — it is the consonant's inherent vowel.
var matras = map[string]string{
	"a": "", "aa": "ा", "A": "ा", "i": "ि", "ii": "ी", "I": "ी",
	"u": "ु", "uu": "ू", "U": "ू", "e": "े", "ai": "ै",
	"o": "ो", "au": "ौ",
}

const virama = "्"

// atomOrder lists recognized atoms longest-first so the greedy matcher
// in tokenize prefers "chh" over "ch" over "c".
var atomOrder []string

func init() {
	seen := map[string]bool{}
	add := func(m map[string]string) {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				atomOrder = append(atomOrder, k)
			}
		}
	}
	add(consonants)
	add(independentVowels)
	// longest-first insertion sort; the table is small.
	for i := 1; i < len(atomOrder); i++ {
		j := i
		for j > 0 && len(atomOrder[j]) > len(atomOrder[j-1]) {
			atomOrder[j], atomOrder[j-1] = atomOrder[j-1], atomOrder[j]
			j--
		}
	}
}

func isVowelAtom(atom string) bool {
	_, ok := independentVowels[atom]
	return ok
}

// tokenize greedily splits raw into ITRANS atoms. Any run of input not
// matching a known atom is passed through unchanged, one rune at a
// time, so punctuation and spaces survive untouched.
func tokenize(raw string) []string {
	runes := []rune(raw)
	var atoms []string
	for i := 0; i < len(runes); {
		matched := ""
		for _, atom := range atomOrder {
			al := len(atom)
			if i+al <= len(runes) && string(runes[i:i+al]) == atom {
				matched = atom
				break
			}
		}
		if matched == "" {
			atoms = append(atoms, string(runes[i]))
			i++
			continue
		}
		atoms = append(atoms, matched)
		i += len(matched)
	}
	return atoms
}

// compose implements the Devanagari composition rules: a consonant
// atom holds the inherent "a" until either a vowel atom attaches as a
// matra, or another consonant forces a virama, or input ends.
func compose(atoms []string) string {
	var b strings.Builder
	pendingConsonant := ""

	flushBare := func() {
		if pendingConsonant != "" {
			b.WriteString(consonants[pendingConsonant])
			pendingConsonant = ""
		}
	}

	for _, atom := range atoms {
		if cons, ok := consonants[atom]; ok {
			if pendingConsonant != "" {
				b.WriteString(consonants[pendingConsonant])
				b.WriteString(virama)
			}
			pendingConsonant = atom
			_ = cons
			continue
		}
		if isVowelAtom(atom) {
			if pendingConsonant != "" {
				b.WriteString(consonants[pendingConsonant])
				b.WriteString(matras[atom])
				pendingConsonant = ""
			} else {
				b.WriteString(independentVowels[atom])
			}
			continue
		}
		flushBare()
		b.WriteString(atom) // unknown atom: pass through (punctuation, digits)
	}
	flushBare()
	return b.String()
}

// Feed appends key to the raw buffer and recomputes the composed
// output from scratch. ITRANS composition has no separate "pending"
// state beyond the raw keys already fed, which the caller can request
// via Transliterate(m.pending) if it needs the in-progress view.
func (m *ITRANSDevanagari) Feed(key rune) (string, string) {
	m.pending = append(m.pending, key)
	return m.Transliterate(m.pending), ""
}

func (m *ITRANSDevanagari) Reset() { m.pending = nil }

func (*ITRANSDevanagari) Transliterate(tokens []rune) string {
	return compose(tokenize(string(tokens)))
}

// LetterClassifier accepts any Unicode letter, not just the Latin-case
// Ll/Lu pair internal/diacritics.IsLetter checks: a dead key can be
// followed either by the raw Latin ITRANS atom or, on a host that
// forwards a native script key directly, by the composed Devanagari
// consonant itself, and both must fold.
func (*ITRANSDevanagari) LetterClassifier() func(rune) bool {
	return unicode.IsLetter
}
