package gate

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lower-cases and trims a prompt for fast-path matching.
// Trailing sentence punctuation is dropped so "Cześć!" matches "cześć".
// A Caser is stateful, so one is built per call.
func Normalize(s string) string {
	s = cases.Lower(language.Polish).String(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?… ")
	return s
}

// words lower-cases s and replaces everything except letters, digits and
// hyphens with single spaces, padding both ends so " kw " lookups work on
// word boundaries.
func words(s string) string {
	s = cases.Lower(language.Und).String(s)
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// hasWord reports whether phrase occurs in the padded word string on word boundaries.
func hasWord(padded, phrase string) bool {
	return strings.Contains(padded, " "+phrase+" ")
}
