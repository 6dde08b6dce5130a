// Package vinyl defines the closed vocabulary of physical record formats.
package vinyl

import (
	"fmt"
	"strings"
)

// Format identifies the playback format of a pressing.
type Format string

const (
	// Format33 is a standard album-length LP.
	Format33 Format = "33T"
	// Format45 is a 7-inch single.
	Format45 Format = "45T"
	// FormatMaxi45 is a 12-inch single or maxi.
	FormatMaxi45 Format = "Maxi45T"
	// Format78 is a pre-microgroove shellac pressing.
	Format78 Format = "78T"
	// FormatMixed covers releases spanning multiple speeds.
	FormatMixed Format = "Mixte"
	// FormatUnknown is used when the format cannot be determined.
	FormatUnknown Format = "Inconnu"
)

var formatSet = map[Format]struct{}{
	Format33:      {},
	Format45:      {},
	FormatMaxi45:  {},
	Format78:      {},
	FormatMixed:   {},
	FormatUnknown: {},
}

// Valid reports whether the format belongs to the closed vocabulary.
func (f Format) Valid() bool {
	_, ok := formatSet[f]
	return ok
}

// String returns the stored representation.
func (f Format) String() string {
	return string(f)
}

// ParseFormat converts a stored string back into a Format.
func ParseFormat(value string) (Format, error) {
	f := Format(strings.TrimSpace(value))
	if !f.Valid() {
		return FormatUnknown, fmt.Errorf("unknown format %q", value)
	}
	return f, nil
}

// NormalizeGuess coerces a free-text format description into the closed
// vocabulary using keyword heuristics. Anything unrecognized maps to
// FormatUnknown.
func NormalizeGuess(raw string) Format {
	if f := Format(strings.TrimSpace(raw)); f.Valid() {
		return f
	}
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "maxi") || strings.Contains(lowered, "12\"") || strings.Contains(lowered, "12 inch") || strings.Contains(lowered, "12-inch"):
		return FormatMaxi45
	case strings.Contains(lowered, "78"):
		return Format78
	case strings.Contains(lowered, "45") || strings.Contains(lowered, "7\"") || strings.Contains(lowered, "7 inch") || strings.Contains(lowered, "7-inch") || strings.Contains(lowered, "single"):
		return Format45
	case strings.Contains(lowered, "33") || strings.Contains(lowered, "lp") || strings.Contains(lowered, "album"):
		return Format33
	case strings.Contains(lowered, "mix"):
		return FormatMixed
	default:
		return FormatUnknown
	}
}

// FromDiscogs maps Discogs format descriptors (speed and size strings found
// in release format lists) onto the vocabulary.
func FromDiscogs(descriptions []string) Format {
	joined := strings.ToLower(strings.Join(descriptions, " "))
	switch {
	case strings.Contains(joined, "78 rpm"):
		return Format78
	case strings.Contains(joined, "12\"") && strings.Contains(joined, "45 rpm"):
		return FormatMaxi45
	case strings.Contains(joined, "7\""):
		return Format45
	case strings.Contains(joined, "lp") || strings.Contains(joined, "33 "):
		return Format33
	case joined == "":
		return FormatUnknown
	default:
		return NormalizeGuess(joined)
	}
}
