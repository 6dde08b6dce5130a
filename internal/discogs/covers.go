package discogs

import (
	"net/url"
	"sort"
	"strings"
)

// maxCovers caps the ranked cover list persisted per candidate.
const maxCovers = 10

// Cover ranking weights.
const (
	coverWeightPrimary      = 2000
	coverWeightKeyword      = 200
	coverWeightDetailSource = 120
	coverWeightSearchSource = 20
	coverWeightFrequencyCap = 200
	coverWeightFrequency    = 25
	coverPenaltyNonCover    = -400
	coverPenaltyPlaceholder = -2000
	coverSizeDivisor        = 8
)

var coverKeywords = []string{"front", "cover", "sleeve"}

var nonCoverKeywords = []string{"label", "matrix", "insert", "poster", "back", "inner", "booklet", "obi"}

var placeholderMarkers = []string{"spacer.gif", "default-release", "missing"}

// rankCovers normalizes, deduplicates, scores, and sorts a candidate's cover
// images, returning at most maxCovers entries best first.
func rankCovers(covers []Cover) []Cover {
	type ranked struct {
		cover Cover
		score int
	}

	frequency := make(map[string]int, len(covers))
	for _, cover := range covers {
		frequency[normalizeCoverURL(cover.URL)]++
	}

	seen := make(map[string]bool, len(covers))
	entries := make([]ranked, 0, len(covers))
	for _, cover := range covers {
		normalized := normalizeCoverURL(cover.URL)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		cover.URL = normalized
		entries = append(entries, ranked{
			cover: cover,
			score: scoreCover(cover, frequency[normalized]),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
	if len(entries) > maxCovers {
		entries = entries[:maxCovers]
	}

	result := make([]Cover, len(entries))
	for i, entry := range entries {
		result[i] = entry.cover
	}
	return result
}

func scoreCover(cover Cover, frequency int) int {
	lowered := strings.ToLower(cover.URL)
	score := 0

	if cover.Kind == CoverKindPrimary {
		score += coverWeightPrimary
	}
	if containsAny(lowered, coverKeywords) {
		score += coverWeightKeyword
	}
	switch cover.Source {
	case CoverSourceRelease, CoverSourceMaster:
		score += coverWeightDetailSource
	case CoverSourceSearch:
		score += coverWeightSearchSource
	}

	bonus := frequency * coverWeightFrequency
	if bonus > coverWeightFrequencyCap {
		bonus = coverWeightFrequencyCap
	}
	score += bonus

	if cover.Kind != CoverKindPrimary && containsAny(lowered, nonCoverKeywords) {
		score += coverPenaltyNonCover
	}
	if containsAny(lowered, placeholderMarkers) {
		score += coverPenaltyPlaceholder
	}

	if cover.Width > 0 && cover.Height > 0 {
		smaller := cover.Width
		if cover.Height < smaller {
			smaller = cover.Height
		}
		score += smaller / coverSizeDivisor
	}

	return score
}

// normalizeCoverURL forces https and strips the query string so the same
// image served under different cache parameters deduplicates.
func normalizeCoverURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	parsed.Scheme = "https"
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// usableImageURL reports whether a URL points at a real image rather than a
// placeholder.
func usableImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	return !containsAny(strings.ToLower(raw), placeholderMarkers)
}

func containsAny(value string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(value, keyword) {
			return true
		}
	}
	return false
}
