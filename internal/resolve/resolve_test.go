package resolve

import (
	"testing"
	"time"

	"vault/internal/discogs"
	"vault/internal/enrich"
	"vault/internal/vinyl"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func frenchName() *string {
	name := "France"
	return &name
}

func TestBuildResolvedPrefersEnrichment(t *testing.T) {
	candidates := []discogs.Candidate{
		{
			ArtistName: "Daft Punk",
			ArtistID:   42,
			Title:      "Discovery",
			MasterID:   9,
			ReleaseID:  101,
			Years:      []string{"2003", "2001"},
			Covers: []discogs.Cover{
				{URL: "https://img.example.com/front.jpg", Source: discogs.CoverSourceRelease},
				{URL: "https://img.example.com/master.jpg", Source: discogs.CoverSourceMaster},
			},
		},
	}
	enrichment := &enrich.Result{
		Artist: enrich.ArtistInfo{Name: "Daft Punk", CountryCode: "FR", CountryName: frenchName(), DiscogsArtistID: 77},
		Record: enrich.RecordInfo{Title: "Discovery", YearOriginal: "2001", Format: vinyl.Format33, DiscogsMasterID: 9},
	}

	resolved, chosen := BuildResolved("daft punk", "discovery", candidates, enrichment, testNow)
	if chosen != 0 {
		t.Fatalf("chosen = %d", chosen)
	}
	if resolved.Artist.CountryCode != "FR" {
		t.Errorf("countryCode = %q", resolved.Artist.CountryCode)
	}
	if resolved.Artist.DiscogsArtistID != 77 {
		t.Errorf("artist id = %d, want enrichment value", resolved.Artist.DiscogsArtistID)
	}
	if resolved.Artist.NameCanonical != "daft punk" {
		t.Errorf("nameCanonical = %q", resolved.Artist.NameCanonical)
	}
	if resolved.Record.YearOriginal != "2001" {
		t.Errorf("year = %q", resolved.Record.YearOriginal)
	}
	if resolved.Record.DiscogsReleaseID != 101 {
		t.Errorf("release id = %d, want candidate value", resolved.Record.DiscogsReleaseID)
	}
	if resolved.CoverDefaultIndex != 1 {
		t.Errorf("coverDefaultIndex = %d, want first master cover", resolved.CoverDefaultIndex)
	}
}

func TestBuildResolvedCanonicalAlwaysRecomputed(t *testing.T) {
	enrichment := &enrich.Result{
		Artist: enrich.ArtistInfo{Name: "Café Del Mar", CountryCode: enrich.CountryUnknown},
		Record: enrich.RecordInfo{Title: "Volumen Uno", YearOriginal: "0000", Format: vinyl.FormatUnknown},
	}
	resolved, _ := BuildResolved("cafe del mar", "volumen uno", nil, enrichment, testNow)
	if resolved.Artist.NameCanonical != "cafe del mar" {
		t.Errorf("nameCanonical = %q", resolved.Artist.NameCanonical)
	}
	if resolved.Record.TitleCanonical != "volumen uno" {
		t.Errorf("titleCanonical = %q", resolved.Record.TitleCanonical)
	}
}

func TestBuildResolvedFallsBackToRawInput(t *testing.T) {
	resolved, chosen := BuildResolved("daft punk", "discovery", nil, nil, testNow)
	if chosen != -1 {
		t.Fatalf("chosen = %d", chosen)
	}
	if resolved.Artist.Name != "Daft Punk" {
		t.Errorf("name = %q", resolved.Artist.Name)
	}
	if resolved.Record.Title != "Discovery" {
		t.Errorf("title = %q", resolved.Record.Title)
	}
	if resolved.Artist.CountryCode != enrich.CountryUnknown {
		t.Errorf("countryCode = %q", resolved.Artist.CountryCode)
	}
	if resolved.Record.YearOriginal != YearUnknown {
		t.Errorf("year = %q", resolved.Record.YearOriginal)
	}
}

func TestBuildResolvedEnrichmentIDSelectsCandidate(t *testing.T) {
	candidates := []discogs.Candidate{
		{ArtistName: "Daft Punk", Title: "Homework", ReleaseID: 50},
		{ArtistName: "Daft Punk", Title: "Discovery", ReleaseID: 101, MasterID: 9},
	}
	enrichment := &enrich.Result{
		Artist: enrich.ArtistInfo{Name: "Daft Punk", CountryCode: "FR", CountryName: frenchName()},
		Record: enrich.RecordInfo{Title: "Discovery", YearOriginal: "2001", Format: vinyl.Format33, DiscogsReleaseID: 101},
	}
	_, chosen := BuildResolved("daft punk", "discovery", candidates, enrichment, testNow)
	if chosen != 1 {
		t.Fatalf("chosen = %d, want candidate matching release id", chosen)
	}
}

func TestBuildResolvedYearFallsBackToEarliestCandidateYear(t *testing.T) {
	candidates := []discogs.Candidate{
		{ArtistName: "Daft Punk", Title: "Discovery", ReleaseID: 101, Years: []string{"2005", "2001", "bogus"}},
	}
	enrichment := &enrich.Result{
		Artist: enrich.ArtistInfo{Name: "Daft Punk", CountryCode: enrich.CountryUnknown},
		Record: enrich.RecordInfo{Title: "Discovery", YearOriginal: "19xx", Format: vinyl.Format33},
	}
	resolved, _ := BuildResolved("daft punk", "discovery", candidates, enrichment, testNow)
	if resolved.Record.YearOriginal != "2001" {
		t.Errorf("year = %q, want earliest valid candidate year", resolved.Record.YearOriginal)
	}
}

func TestValidYear(t *testing.T) {
	tests := []struct {
		year string
		want bool
	}{
		{"1979", true},
		{"0000", true},
		{"19xx", false},
		{"2027", true},
		{"2028", false},
		{"1899", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := ValidYear(tc.year, testNow); got != tc.want {
			t.Errorf("ValidYear(%q) = %v, want %v", tc.year, got, tc.want)
		}
	}
}
