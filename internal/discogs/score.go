package discogs

import (
	"strings"

	"vault/internal/textutil"
)

// Name match weights. Exact matches dominate, prefixes beat substrings.
const (
	scoreExact     = 100
	scorePrefix    = 60
	scoreSubstring = 30
	scoreHasYear   = 10
)

// MaxScore is the highest score a candidate can reach, used to normalize
// scores into a confidence value.
const MaxScore = scoreExact*2 + scoreHasYear

// scoreCandidate rates how well a candidate matches the canonical input.
// Artist and title contribute symmetrically; a known year adds a small bonus.
func scoreCandidate(candidate Candidate, artistCanonical, recordCanonical string) int {
	score := matchScore(textutil.Canonicalize(candidate.ArtistName), artistCanonical)
	score += matchScore(textutil.Canonicalize(candidate.Title), recordCanonical)
	if len(candidate.Years) > 0 {
		score += scoreHasYear
	}
	return score
}

func matchScore(value, target string) int {
	if value == "" || target == "" {
		return 0
	}
	switch {
	case value == target:
		return scoreExact
	case strings.HasPrefix(value, target) || strings.HasPrefix(target, value):
		return scorePrefix
	case strings.Contains(value, target) || strings.Contains(target, value):
		return scoreSubstring
	default:
		return 0
	}
}
