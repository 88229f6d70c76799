package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases text with Unicode rules and composes it to NFC so that
// decomposed file names and model output compare equal.
func Fold(text string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(text))
}

// stripPunctuation replaces every rune that is not a letter, digit,
// underscore, or whitespace with a space.
func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
}
