package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"vault/internal/config"
	"vault/internal/discogs"
	"vault/internal/vinyl"
)

var testInput = Input{
	RawArtist:       "daft punk",
	RawTitle:        "discovery",
	ArtistCanonical: "daft punk",
	RecordCanonical: "discovery",
}

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.Enrichment{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	}
	client := NewClient(cfg, WithHTTPClient(server.Client()))
	return NewService(cfg, WithClient(client))
}

func TestEnrichWithoutCredentialsUsesFallback(t *testing.T) {
	service := NewService(config.Enrichment{})
	result, err := service.Enrich(context.Background(), testInput, nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !result.Fallback {
		t.Error("expected fallback result")
	}
	if result.Artist.Name != "Daft Punk" {
		t.Errorf("artist name = %q", result.Artist.Name)
	}
	if result.Artist.CountryCode != CountryUnknown || result.Artist.CountryName != nil {
		t.Errorf("unexpected country: %q %v", result.Artist.CountryCode, result.Artist.CountryName)
	}
	if result.Record.YearOriginal != "0000" {
		t.Errorf("year = %q", result.Record.YearOriginal)
	}
	if result.Record.Format != vinyl.FormatUnknown {
		t.Errorf("format = %v", result.Record.Format)
	}
}

func TestEnrichParsesModelResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, `{
			"artist": {"name": "Daft Punk", "countryCode": "FR", "countryName": "France", "discogsArtistId": 77},
			"record": {"title": "Discovery", "yearOriginal": "2001", "format": "33T", "discogsMasterId": 9, "discogsReleaseId": 101}
		}`))
	})
	service := newTestService(t, handler)

	result, err := service.Enrich(context.Background(), testInput, nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if result.Fallback {
		t.Error("unexpected fallback")
	}
	if result.Artist.CountryCode != "FR" || result.Artist.CountryName == nil || *result.Artist.CountryName != "France" {
		t.Errorf("country = %q %v", result.Artist.CountryCode, result.Artist.CountryName)
	}
	if result.Record.Format != vinyl.Format33 {
		t.Errorf("format = %v", result.Record.Format)
	}
	if result.Record.DiscogsMasterID != 9 || result.Record.DiscogsReleaseID != 101 {
		t.Errorf("ids = %d %d", result.Record.DiscogsMasterID, result.Record.DiscogsReleaseID)
	}
}

func TestEnrichSanitizesBadFields(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write(completionBody(t, `{
				"artist": {"name": "Daft Punk", "countryCode": "France", "countryName": "France"},
				"record": {"title": "Discovery", "yearOriginal": "around 2001", "format": "vinyl lp"}
			}`))
			return
		}
		// Country follow-up answers with an invalid code: must be rejected.
		w.Write(completionBody(t, `{"countryCode": "FRA", "countryName": "France"}`))
	})
	service := newTestService(t, handler)

	result, err := service.Enrich(context.Background(), testInput, nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if result.Artist.CountryCode != CountryUnknown {
		t.Errorf("countryCode = %q, want XX", result.Artist.CountryCode)
	}
	if result.Artist.CountryName != nil {
		t.Errorf("countryName = %v, want nil", result.Artist.CountryName)
	}
	if result.Record.YearOriginal != "0000" {
		t.Errorf("year = %q, want 0000", result.Record.YearOriginal)
	}
	if result.Record.Format != vinyl.Format33 {
		t.Errorf("format = %v, want 33T", result.Record.Format)
	}
	if calls.Load() != 2 {
		t.Errorf("expected country follow-up call, got %d calls", calls.Load())
	}
}

func TestEnrichCountryFollowUpAccepted(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write(completionBody(t, `{
				"artist": {"name": "Air", "countryCode": "XX"},
				"record": {"title": "Moon Safari", "yearOriginal": "1998", "format": "33T"}
			}`))
			return
		}
		w.Write(completionBody(t, `{"countryCode": "fr", "countryName": "France"}`))
	})
	service := newTestService(t, handler)

	result, err := service.Enrich(context.Background(), testInput, nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if result.Artist.CountryCode != "FR" {
		t.Errorf("countryCode = %q, want FR", result.Artist.CountryCode)
	}
	if result.Artist.CountryName == nil || *result.Artist.CountryName != "France" {
		t.Errorf("countryName = %v", result.Artist.CountryName)
	}
}

func TestEnrichMalformedResponseFallsBack(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, "sorry, I cannot help with that"))
	})
	service := newTestService(t, handler)

	result, err := service.Enrich(context.Background(), testInput, nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !result.Fallback {
		t.Error("expected fallback result")
	}
}

func TestEnrichServerErrorFallsBack(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	service := newTestService(t, handler)

	result, err := service.Enrich(context.Background(), testInput, nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !result.Fallback {
		t.Error("expected fallback result")
	}
}

func TestBuildUserPromptCarriesCandidateFormat(t *testing.T) {
	candidates := []discogs.Candidate{
		{ArtistName: "Daft Punk", Title: "Discovery", Years: []string{"2001"}, Format: vinyl.Format33, MasterID: 9, ReleaseID: 101},
		{ArtistName: "Daft Punk", Title: "Homework", Format: vinyl.FormatUnknown, ReleaseID: 102},
	}
	prompt := buildUserPrompt(testInput, candidates)

	if !strings.Contains(prompt, `format="33T"`) {
		t.Errorf("expected determined format in prompt:\n%s", prompt)
	}
	// An undetermined format is presented as empty, not as the sentinel.
	if !strings.Contains(prompt, `title="Homework" year="" format=""`) {
		t.Errorf("expected blank format for unknown:\n%s", prompt)
	}
}

func TestDecodeModelJSONStripsCodeFence(t *testing.T) {
	var parsed struct {
		OK bool `json:"ok"`
	}
	content := "```json\n{\"ok\": true}\n```"
	if err := DecodeModelJSON(content, &parsed); err != nil {
		t.Fatalf("DecodeModelJSON failed: %v", err)
	}
	if !parsed.OK {
		t.Error("expected ok=true")
	}
}
