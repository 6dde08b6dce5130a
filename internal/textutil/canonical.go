package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// whitespacePattern matches internal whitespace runs for collapsing.
var whitespacePattern = regexp.MustCompile(`\s+`)

// markStripper decomposes text and removes combining marks, so that
// "Café" and "Cafe" canonicalize identically.
var markStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Canonicalize converts free text into a matching key: trimmed, internal
// whitespace collapsed to single spaces, Unicode-decomposed with combining
// marks removed, and lowercased. The function is idempotent.
func Canonicalize(s string) string {
	s = strings.TrimSpace(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	if stripped, _, err := transform.String(markStripper, s); err == nil {
		s = stripped
	}
	return strings.ToLower(s)
}
