package translit

import "github.com/keyweave/inputcore/internal/diacritics"

// NoIME is the passthrough method: every key commits itself unchanged
// (spec §6: "empty inputmethod list -> single NoIME").
type NoIME struct{}

func (NoIME) Name() string { return "NoIME" }

func (NoIME) Feed(key rune) (string, string) { return string(key), "" }

func (NoIME) Reset() {}

func (NoIME) Transliterate(tokens []rune) string { return string(tokens) }

func (NoIME) LetterClassifier() func(rune) bool { return diacritics.IsLetter }
