package resolve

import (
	"testing"

	"vault/internal/discogs"
	"vault/internal/enrich"
	"vault/internal/vinyl"
)

func validResolved() *Resolved {
	return &Resolved{
		Artist: Artist{
			Name:          "Daft Punk",
			NameCanonical: "daft punk",
			CountryCode:   "FR",
			CountryName:   frenchName(),
		},
		Record: Record{
			Title:          "Discovery",
			TitleCanonical: "discovery",
			YearOriginal:   "2001",
			Format:         vinyl.Format33,
		},
		Covers: []discogs.Cover{
			{URL: "https://img.example.com/front.jpg", Source: discogs.CoverSourceMaster},
		},
		CoverDefaultIndex: 0,
	}
}

func hasViolation(violations []string, code string) bool {
	for _, violation := range violations {
		if violation == code {
			return true
		}
	}
	return false
}

func TestValidatePasses(t *testing.T) {
	if violations := Validate(validResolved(), testNow); len(violations) != 0 {
		t.Fatalf("unexpected violations: %v", violations)
	}
}

func TestValidateNilResolved(t *testing.T) {
	violations := Validate(nil, testNow)
	if !hasViolation(violations, ViolationStructure) {
		t.Fatalf("violations = %v", violations)
	}
}

func TestValidateCountryNameMustBeNullWhenUnknown(t *testing.T) {
	resolved := validResolved()
	resolved.Artist.CountryCode = enrich.CountryUnknown
	violations := Validate(resolved, testNow)
	if !hasViolation(violations, ViolationCountryNameNotNull) {
		t.Fatalf("violations = %v", violations)
	}

	resolved.Artist.CountryName = nil
	if violations := Validate(resolved, testNow); len(violations) != 0 {
		t.Fatalf("expected pass with nil countryName, got %v", violations)
	}
}

func TestValidateYear(t *testing.T) {
	resolved := validResolved()
	resolved.Record.YearOriginal = "19xx"
	if !hasViolation(Validate(resolved, testNow), ViolationRecordYear) {
		t.Error("expected year violation for 19xx")
	}

	resolved.Record.YearOriginal = "0000"
	if hasViolation(Validate(resolved, testNow), ViolationRecordYear) {
		t.Error("0000 must be accepted")
	}

	resolved.Record.YearOriginal = "2030"
	if !hasViolation(Validate(resolved, testNow), ViolationRecordYear) {
		t.Error("expected year violation for far future year")
	}
}

func TestValidateEmptyFields(t *testing.T) {
	resolved := validResolved()
	resolved.Artist.Name = " "
	resolved.Record.Title = ""
	violations := Validate(resolved, testNow)
	if !hasViolation(violations, ViolationArtistName) || !hasViolation(violations, ViolationRecordTitle) {
		t.Fatalf("violations = %v", violations)
	}
}

func TestValidateCovers(t *testing.T) {
	resolved := validResolved()
	resolved.CoverDefaultIndex = 5
	if !hasViolation(Validate(resolved, testNow), ViolationCoverDefaultIndex) {
		t.Error("expected default index violation")
	}

	resolved = validResolved()
	for i := 0; i < 11; i++ {
		resolved.Covers = append(resolved.Covers, discogs.Cover{URL: "https://img.example.com/x.jpg"})
	}
	if !hasViolation(Validate(resolved, testNow), ViolationCoversTooMany) {
		t.Error("expected too many covers violation")
	}

	// Empty cover list: default index is not checked.
	resolved = validResolved()
	resolved.Covers = nil
	resolved.CoverDefaultIndex = 3
	if len(Validate(resolved, testNow)) != 0 {
		t.Error("expected pass with no covers")
	}
}
