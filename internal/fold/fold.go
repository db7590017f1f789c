// Package fold implements the accent- and case-insensitive matching used for
// tag and directory names.
package fold

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key returns the comparison key of s: canonical decomposition with
// nonspacing marks removed, then Unicode case folding. Whitespace is kept
// as is.
func Key(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// Equal reports whether a and b match ignoring accents and case.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// Contains reports whether needle occurs in haystack ignoring accents and
// case. An empty needle matches everything.
func Contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Key(haystack), Key(needle))
}
