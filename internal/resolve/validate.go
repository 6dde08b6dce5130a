package resolve

import (
	"strings"
	"time"

	"vault/internal/enrich"
)

// Violation codes returned by Validate.
const (
	ViolationStructure          = "structure.invalid"
	ViolationArtistName         = "artist.name.invalid"
	ViolationArtistCanonical    = "artist.nameCanonical.invalid"
	ViolationArtistCountryCode  = "artist.countryCode.invalid"
	ViolationCountryNameNotNull = "artist.countryName.mustBeNullWhenXX"
	ViolationRecordTitle        = "record.title.invalid"
	ViolationRecordCanonical    = "record.titleCanonical.invalid"
	ViolationRecordYear         = "record.yearOriginal.invalid"
	ViolationCoversTooMany      = "covers.tooMany"
	ViolationCoverDefaultIndex  = "coverDefaultIndex.invalid"
)

// maxCovers caps the resolved cover list.
const maxCovers = 10

// Validate structurally checks a resolved record. An empty result means the
// record may be promoted; any violation blocks it.
func Validate(resolved *Resolved, now time.Time) []string {
	if resolved == nil {
		return []string{ViolationStructure}
	}

	var violations []string

	if strings.TrimSpace(resolved.Artist.Name) == "" {
		violations = append(violations, ViolationArtistName)
	}
	if strings.TrimSpace(resolved.Artist.NameCanonical) == "" {
		violations = append(violations, ViolationArtistCanonical)
	}
	if strings.TrimSpace(resolved.Artist.CountryCode) == "" {
		violations = append(violations, ViolationArtistCountryCode)
	}
	if resolved.Artist.CountryCode == enrich.CountryUnknown && resolved.Artist.CountryName != nil {
		violations = append(violations, ViolationCountryNameNotNull)
	}

	if strings.TrimSpace(resolved.Record.Title) == "" {
		violations = append(violations, ViolationRecordTitle)
	}
	if strings.TrimSpace(resolved.Record.TitleCanonical) == "" {
		violations = append(violations, ViolationRecordCanonical)
	}
	if !ValidYear(resolved.Record.YearOriginal, now) {
		violations = append(violations, ViolationRecordYear)
	}

	if len(resolved.Covers) > maxCovers {
		violations = append(violations, ViolationCoversTooMany)
	}
	if len(resolved.Covers) > 0 {
		if resolved.CoverDefaultIndex < 0 || resolved.CoverDefaultIndex >= len(resolved.Covers) {
			violations = append(violations, ViolationCoverDefaultIndex)
		}
	}

	return violations
}
