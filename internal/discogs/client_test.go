package discogs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vault/internal/config"
	"vault/internal/vinyl"
)

func testConfig(baseURL string) config.Discogs {
	return config.Discogs{
		Token:     "test-token",
		BaseURL:   baseURL,
		UserAgent: "VaultTest/1.0",
		PerPage:   25,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(testConfig(server.URL),
		WithHTTPClient(server.Client()),
		WithSleeper(func(time.Duration) {}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client, server
}

func TestSearchBuildsScoredCandidates(t *testing.T) {
	handler := http.NewServeMux()
	handler.HandleFunc("/database/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("artist") == "" {
			t.Errorf("expected structured search, got query %v", r.URL.Query())
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id": 101, "type": "release", "master_id": 9,
					"title": "Daft Punk - Discovery", "year": "2001",
					"country":     "France",
					"cover_image": "https://img.example.com/discovery-front.jpg",
					"format":      []string{"Vinyl", "LP", "Album"},
				},
				{
					"id": 102, "type": "release",
					"title":   "Daft Punk - Homework",
					"country": "France",
					"thumb":   "https://img.example.com/homework.jpg",
				},
				{
					// No country: filtered out.
					"id": 103, "type": "release",
					"title":       "Daft Punk - Discovery",
					"cover_image": "https://img.example.com/x.jpg",
				},
				{
					// Unofficial submission: filtered out.
					"id": 104, "type": "release", "status": "Draft",
					"title": "Daft Punk - Discovery", "country": "France",
					"cover_image": "https://img.example.com/bootleg.jpg",
				},
			},
		})
	})
	handler.HandleFunc("/masters/9/versions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"versions": []map[string]any{}})
	})
	handler.HandleFunc("/masters/9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": 9, "title": "Discovery", "year": 2001,
			"images": []map[string]any{
				{"type": "primary", "uri": "https://img.example.com/master-front.jpg", "width": 600, "height": 600},
			},
		})
	})
	handler.HandleFunc("/releases/101", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": 101, "title": "Discovery", "year": 2001, "country": "France",
			"artists": []map[string]any{{"id": 77, "name": "Daft Punk"}},
			"images": []map[string]any{
				{"type": "secondary", "uri": "https://img.example.com/label-shot.jpg", "width": 600, "height": 600},
			},
		})
	})
	handler.HandleFunc("/releases/102", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 102, "title": "Homework"})
	})

	client, _ := newTestClient(t, handler)
	candidates, err := client.Search(context.Background(), "daft punk", "discovery")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	top := candidates[0]
	if top.ReleaseID != 101 {
		t.Fatalf("expected release 101 first, got %d", top.ReleaseID)
	}
	if top.ArtistID != 77 {
		t.Errorf("expected artist id from detail merge, got %d", top.ArtistID)
	}
	if top.Format != vinyl.Format33 {
		t.Errorf("expected format derived from search descriptors, got %v", top.Format)
	}
	if top.Score <= candidates[1].Score {
		t.Errorf("expected descending scores, got %d then %d", top.Score, candidates[1].Score)
	}
	if len(top.Covers) == 0 {
		t.Fatal("expected ranked covers")
	}
	if top.Covers[0].Kind != CoverKindPrimary {
		t.Errorf("expected master primary image ranked first, got %+v", top.Covers[0])
	}
}

func TestSearchFallsBackToFreeText(t *testing.T) {
	var calls atomic.Int32
	handler := http.NewServeMux()
	handler.HandleFunc("/database/search", func(w http.ResponseWriter, r *http.Request) {
		call := calls.Add(1)
		if call == 1 {
			if r.URL.Query().Get("artist") == "" {
				t.Error("first call should be structured")
			}
			json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
			return
		}
		if r.URL.Query().Get("q") == "" {
			t.Error("second call should be free text")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id": 55, "type": "release",
					"title": "Air - Moon Safari", "country": "France",
					"cover_image": "https://img.example.com/moon-front.jpg",
				},
			},
		})
	})
	handler.HandleFunc("/releases/55", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 55})
	})

	client, _ := newTestClient(t, handler)
	candidates, err := client.Search(context.Background(), "air", "moon safari")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ReleaseID != 55 {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 search calls, got %d", calls.Load())
	}
}

func TestSearchRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	var slept []time.Duration
	handler := http.NewServeMux()
	handler.HandleFunc("/database/search", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id": 7, "type": "release",
					"title": "Nirvana - Nevermind", "country": "US",
					"cover_image": "https://img.example.com/nevermind-cover.jpg",
				},
			},
		})
	})
	handler.HandleFunc("/releases/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 7})
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(testConfig(server.URL),
		WithHTTPClient(server.Client()),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	candidates, err := client.Search(context.Background(), "nirvana", "nevermind")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate after retry, got %d", len(candidates))
	}
	if len(slept) == 0 || slept[0] != 2*time.Second {
		t.Errorf("expected Retry-After honored, slept %v", slept)
	}
}

func TestSearchDegradesToEmptyOnPersistentFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, handler)

	candidates, err := client.Search(context.Background(), "daft punk", "discovery")
	if err != nil {
		t.Fatalf("expected degraded empty result, got error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestMergeDetailDerivesFormatFromRelease(t *testing.T) {
	candidate := Candidate{ReleaseID: 5, Format: vinyl.FormatUnknown}
	detail := &releaseResponse{ID: 5, Title: "Moon Safari"}
	detail.Formats = []struct {
		Name         string   `json:"name"`
		Descriptions []string `json:"descriptions"`
	}{
		{Name: "Vinyl", Descriptions: []string{"12\"", "45 RPM"}},
	}

	mergeDetail(&candidate, detail)
	if candidate.Format != vinyl.FormatMaxi45 {
		t.Errorf("expected format from release descriptors, got %v", candidate.Format)
	}

	// An already determined format is kept.
	candidate.Format = vinyl.Format45
	mergeDetail(&candidate, detail)
	if candidate.Format != vinyl.Format45 {
		t.Errorf("expected existing format kept, got %v", candidate.Format)
	}
}

func TestCleanArtistName(t *testing.T) {
	if got := cleanArtistName("Nirvana (2)"); got != "Nirvana" {
		t.Errorf("cleanArtistName = %q", got)
	}
	if got := cleanArtistName("The Who (live)"); got != "The Who (live)" {
		t.Errorf("cleanArtistName = %q", got)
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	client := &Client{retryBaseDelay: 500 * time.Millisecond, retryMaxDelay: 10 * time.Second}
	if got := client.backoffDelay(1); got != 500*time.Millisecond {
		t.Errorf("attempt 1 delay = %v", got)
	}
	if got := client.backoffDelay(3); got != 2*time.Second {
		t.Errorf("attempt 3 delay = %v", got)
	}
	if got := client.backoffDelay(10); got != 10*time.Second {
		t.Errorf("attempt 10 delay = %v, want cap", got)
	}
}
