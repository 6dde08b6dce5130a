// Package resolve merges catalog candidates, enrichment output, and raw user
// input into one canonical record, and validates it before promotion.
package resolve

import (
	"strconv"
	"strings"
	"time"

	"vault/internal/discogs"
	"vault/internal/enrich"
	"vault/internal/textutil"
	"vault/internal/vinyl"
)

// YearUnknown is the sentinel original year for an undetermined release date.
const YearUnknown = "0000"

// minYear bounds how far back a release year may plausibly reach.
const minYear = 1900

// Artist is the resolved artist field set.
type Artist struct {
	Name            string  `json:"name"`
	NameCanonical   string  `json:"nameCanonical"`
	CountryCode     string  `json:"countryCode"`
	CountryName     *string `json:"countryName"`
	DiscogsArtistID int64   `json:"discogsArtistId,omitempty"`
}

// Record is the resolved record field set.
type Record struct {
	Title            string       `json:"title"`
	TitleCanonical   string       `json:"titleCanonical"`
	YearOriginal     string       `json:"yearOriginal"`
	Format           vinyl.Format `json:"format"`
	DiscogsMasterID  int64        `json:"discogsMasterId,omitempty"`
	DiscogsReleaseID int64        `json:"discogsReleaseId,omitempty"`
}

// Resolved is the merged, validated field set a draft must carry before it
// can be finalized.
type Resolved struct {
	Artist            Artist          `json:"artist"`
	Record            Record          `json:"record"`
	Covers            []discogs.Cover `json:"covers,omitempty"`
	CoverDefaultIndex int             `json:"coverDefaultIndex"`
}

// BuildResolved merges the pipeline outputs for one draft. Field precedence
// is enrichment output, then the winning candidate, then title-cased raw
// input. Canonical forms are always recomputed from the chosen display
// string. The returned index points at the winning candidate, -1 when the
// candidate pool is empty.
func BuildResolved(rawArtist, rawTitle string, candidates []discogs.Candidate, enrichment *enrich.Result, now time.Time) (*Resolved, int) {
	chosen := chooseCandidate(candidates, enrichment)
	var winner discogs.Candidate
	if chosen >= 0 {
		winner = candidates[chosen]
	}

	resolved := &Resolved{}

	resolved.Artist.Name = firstNonEmpty(enrichmentArtistName(enrichment), winner.ArtistName, textutil.TitleCase(rawArtist))
	resolved.Artist.NameCanonical = textutil.Canonicalize(resolved.Artist.Name)
	resolved.Artist.CountryCode = enrich.CountryUnknown
	if enrichment != nil && enrichment.Artist.CountryCode != enrich.CountryUnknown {
		resolved.Artist.CountryCode = enrichment.Artist.CountryCode
		resolved.Artist.CountryName = enrichment.Artist.CountryName
	}
	if enrichment != nil && enrichment.Artist.DiscogsArtistID > 0 {
		resolved.Artist.DiscogsArtistID = enrichment.Artist.DiscogsArtistID
	} else {
		resolved.Artist.DiscogsArtistID = winner.ArtistID
	}

	resolved.Record.Title = firstNonEmpty(enrichmentTitle(enrichment), winner.Title, textutil.TitleCase(rawTitle))
	resolved.Record.TitleCanonical = textutil.Canonicalize(resolved.Record.Title)
	resolved.Record.YearOriginal = resolveYear(enrichment, winner, now)
	if enrichment != nil {
		resolved.Record.Format = enrichment.Record.Format
	} else {
		resolved.Record.Format = vinyl.FormatUnknown
	}
	if enrichment != nil && enrichment.Record.DiscogsMasterID > 0 {
		resolved.Record.DiscogsMasterID = enrichment.Record.DiscogsMasterID
	} else {
		resolved.Record.DiscogsMasterID = winner.MasterID
	}
	if enrichment != nil && enrichment.Record.DiscogsReleaseID > 0 {
		resolved.Record.DiscogsReleaseID = enrichment.Record.DiscogsReleaseID
	} else {
		resolved.Record.DiscogsReleaseID = winner.ReleaseID
	}

	resolved.Covers = winner.Covers
	resolved.CoverDefaultIndex = defaultCoverIndex(winner.Covers)

	return resolved, chosen
}

// chooseCandidate prefers the candidate the enrichment identifiers point at,
// else the highest ranked one.
func chooseCandidate(candidates []discogs.Candidate, enrichment *enrich.Result) int {
	if len(candidates) == 0 {
		return -1
	}
	if enrichment != nil {
		for i, candidate := range candidates {
			if enrichment.Record.DiscogsReleaseID > 0 && candidate.ReleaseID == enrichment.Record.DiscogsReleaseID {
				return i
			}
		}
		for i, candidate := range candidates {
			if enrichment.Record.DiscogsMasterID > 0 && candidate.MasterID == enrichment.Record.DiscogsMasterID {
				return i
			}
		}
	}
	return 0
}

// resolveYear keeps the enrichment year when it passes the plausibility
// check, else falls back to the earliest valid candidate year.
func resolveYear(enrichment *enrich.Result, winner discogs.Candidate, now time.Time) string {
	if enrichment != nil && ValidYear(enrichment.Record.YearOriginal, now) {
		return enrichment.Record.YearOriginal
	}
	best := ""
	for _, year := range winner.Years {
		if !ValidYear(year, now) || year == YearUnknown {
			continue
		}
		if best == "" || year < best {
			best = year
		}
	}
	if best != "" {
		return best
	}
	return YearUnknown
}

// ValidYear reports whether a year string is YearUnknown or a plausible
// 4-digit year between minYear and next year.
func ValidYear(year string, now time.Time) bool {
	if year == YearUnknown {
		return true
	}
	if len(year) != 4 {
		return false
	}
	value, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	return value >= minYear && value <= now.Year()+1
}

// defaultCoverIndex picks the first cover coming from the authoritative
// master detail, else the top ranked one.
func defaultCoverIndex(covers []discogs.Cover) int {
	for i, cover := range covers {
		if cover.Source == discogs.CoverSourceMaster {
			return i
		}
	}
	return 0
}

func enrichmentArtistName(enrichment *enrich.Result) string {
	if enrichment == nil {
		return ""
	}
	return enrichment.Artist.Name
}

func enrichmentTitle(enrichment *enrich.Result) string {
	if enrichment == nil {
		return ""
	}
	return enrichment.Record.Title
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
