package textutil

import "strings"

// Slugify converts free text to a lowercase hyphen-separated token suitable
// for file names. Diacritics are stripped, alphanumeric runs are kept, and
// everything else collapses into single hyphens. Returns "unknown" when no
// usable characters remain.
func Slugify(s string) string {
	s = Canonicalize(s)
	var b strings.Builder
	lastHyphen := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
