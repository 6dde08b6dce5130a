package textutil

import (
	"strings"
	"unicode"
)

// lowerParticles are short words kept lowercase when they are not the first
// word of a title. Covers English and French connectives since the catalog
// mixes both.
var lowerParticles = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "for": {},
	"to": {}, "in": {}, "on": {}, "or": {},
	"et": {}, "de": {}, "du": {}, "des": {}, "la": {}, "le": {},
	"les": {}, "au": {}, "aux": {}, "d'": {}, "l'": {},
}

// TitleCase produces a display form from free text: whitespace collapsed,
// each word capitalized except known particles after the first word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	out := make([]string, 0, len(words))
	for i, w := range words {
		lw := strings.ToLower(w)
		if i > 0 {
			if _, ok := lowerParticles[lw]; ok {
				out = append(out, lw)
				continue
			}
		}
		out = append(out, capitalizeFirst(lw))
	}
	return strings.Join(out, " ")
}

func capitalizeFirst(w string) string {
	runes := []rune(w)
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
