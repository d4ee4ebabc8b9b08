// Package diacritics supplies the combining-mark data the compose engine
// needs for dead-key fallback (spec §4.3a) and the folding tables the
// dictionary and emoji indexes use for accent-insensitive matching.
package diacritics

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DeadKey identifies a dead-key keysym by its combining mark.
type DeadKey string

const (
	DeadGrave      DeadKey = "dead_grave"
	DeadAcute      DeadKey = "dead_acute"
	DeadCircumflex DeadKey = "dead_circumflex"
	DeadTilde      DeadKey = "dead_tilde"
	DeadMacron     DeadKey = "dead_macron"
	DeadBreve      DeadKey = "dead_breve"
	DeadAboveDot   DeadKey = "dead_abovedot"
	DeadDiaeresis  DeadKey = "dead_diaeresis"
	DeadAboveRing  DeadKey = "dead_abovering"
	DeadDoubleAcute DeadKey = "dead_doubleacute"
	DeadCaron      DeadKey = "dead_caron"
	DeadCedilla    DeadKey = "dead_cedilla"
	DeadOgonek     DeadKey = "dead_ogonek"
	DeadIota       DeadKey = "dead_iota"
)

// CombiningMark maps a dead-key keysym name to the Unicode combining
// character it contributes to the fallback composition of §4.3a.
var CombiningMark = map[DeadKey]rune{
	DeadGrave:       '̀',
	DeadAcute:       '́',
	DeadCircumflex:  '̂',
	DeadTilde:       '̃',
	DeadMacron:      '̄',
	DeadBreve:       '̆',
	DeadAboveDot:    '̇',
	DeadDiaeresis:   '̈',
	DeadAboveRing:   '̊',
	DeadDoubleAcute: '̋',
	DeadCaron:       '̌',
	DeadCedilla:     '̧',
	DeadOgonek:      '̨',
	DeadIota:        'ͅ',
}

// IsDeadKey reports whether the given keysym name is a known dead key.
func IsDeadKey(keysym string) bool {
	_, ok := CombiningMark[DeadKey(keysym)]
	return ok
}

// IsLetter reports whether r is a base letter (Unicode category Ll or Lu),
// the condition spec §4.3a requires of the key that terminates a dead-key
// run before fallback composition applies.
func IsLetter(r rune) bool {
	return unicode.Is(unicode.Ll, r) || unicode.Is(unicode.Lu, r)
}

// ComposeFallback builds the NFC-normalized fallback string for a run of
// dead keys followed by a base letter: base + combining marks in the
// reverse order the dead keys were typed (spec §4.3a).
//
// deadKeys is the order they were typed; the marks are appended in reverse
// so the first-typed dead key ends up visually outermost after NFC, matching
// how stacked diacritics compose.
func ComposeFallback(base rune, deadKeys []DeadKey) string {
	marks := make([]rune, 0, len(deadKeys))
	for i := len(deadKeys) - 1; i >= 0; i-- {
		if m, ok := CombiningMark[deadKeys[i]]; ok {
			marks = append(marks, m)
		}
	}
	runes := make([]rune, 0, 1+len(marks))
	runes = append(runes, base)
	runes = append(runes, marks...)
	return norm.NFC.String(string(runes))
}

// FoldKey is the canonical form used for accent-insensitive comparison:
// NFKD, strip combining marks, lowercase (spec §4.5).
func FoldKey(s string) string {
	decomposed := norm.NFKD.String(s)
	out := make([]rune, 0, len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
