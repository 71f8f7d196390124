// Package textfold folds free text (team names, round labels, votes) into a
// canonical comparable form: case-folded, diacritics stripped, every run of
// non-alphanumeric characters collapsed to a single space.
package textfold

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Fold returns the canonical form of s. "  São   Paulo FC " -> "sao paulo fc".
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// Transformers keep state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, cases.Fold().String(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}

	return strings.TrimSpace(nonAlnum.ReplaceAllString(stripped, " "))
}

// Equal reports whether a and b fold to the same non-empty text.
func Equal(a, b string) bool {
	fa := Fold(a)
	return fa != "" && fa == Fold(b)
}

// Contains reports whether the folded s contains the folded sub.
func Contains(s, sub string) bool {
	fs := Fold(sub)
	return fs != "" && strings.Contains(Fold(s), fs)
}

// Squash trims s and collapses inner whitespace without changing case.
// Used for persisted team names.
func Squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
