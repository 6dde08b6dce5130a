// Package enrich fills in artist and record metadata using a text-generation
// model, with a deterministic fallback when no credentials are configured or
// the model response is unusable. Enrichment never fails the pipeline.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"vault/internal/config"
	"vault/internal/discogs"
	"vault/internal/logging"
	"vault/internal/textutil"
	"vault/internal/vinyl"
)

// CountryUnknown is the sentinel country code for an undetermined origin.
const CountryUnknown = "XX"

// promptCandidateLimit bounds how many candidates are shown to the model.
const promptCandidateLimit = 5

var (
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	yearPattern        = regexp.MustCompile(`^\d{4}$`)
)

// Input carries the raw and canonical user input into enrichment.
type Input struct {
	RawArtist       string `json:"rawArtist"`
	RawTitle        string `json:"rawTitle"`
	ArtistCanonical string `json:"artistCanonical"`
	RecordCanonical string `json:"recordCanonical"`
}

// ArtistInfo is the enriched artist field set.
type ArtistInfo struct {
	Name            string  `json:"name"`
	CountryCode     string  `json:"countryCode"`
	CountryName     *string `json:"countryName"`
	DiscogsArtistID int64   `json:"discogsArtistId,omitempty"`
}

// RecordInfo is the enriched record field set.
type RecordInfo struct {
	Title            string       `json:"title"`
	YearOriginal     string       `json:"yearOriginal"`
	Format           vinyl.Format `json:"format"`
	DiscogsMasterID  int64        `json:"discogsMasterId,omitempty"`
	DiscogsReleaseID int64        `json:"discogsReleaseId,omitempty"`
}

// Result is the sanitized enrichment output.
type Result struct {
	Artist ArtistInfo `json:"artist"`
	Record RecordInfo `json:"record"`
	// Fallback marks results produced without a model call.
	Fallback bool `json:"fallback,omitempty"`
}

// Enricher is the narrow interface the pipeline consumes.
type Enricher interface {
	Enrich(ctx context.Context, input Input, candidates []discogs.Candidate) (*Result, error)
}

// Service coordinates model calls and response sanitization.
type Service struct {
	client *Client
	logger *slog.Logger
}

var _ Enricher = (*Service)(nil)

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithLogger attaches a logger for request auditing.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClient overrides the completion client (useful for tests).
func WithClient(client *Client) ServiceOption {
	return func(s *Service) {
		s.client = client
	}
}

// NewService builds an enrichment service. Without an API key the service
// skips all network calls and answers from the deterministic fallback.
func NewService(cfg config.Enrichment, opts ...ServiceOption) *Service {
	service := &Service{logger: logging.NewNop()}
	if strings.TrimSpace(cfg.APIKey) != "" {
		service.client = NewClient(cfg)
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Enrich produces sanitized artist/record fields for the input. Model and
// transport failures degrade to the deterministic fallback; the only error
// returned is context cancellation.
func (s *Service) Enrich(ctx context.Context, input Input, candidates []discogs.Candidate) (*Result, error) {
	if s.client == nil {
		return s.fallback(input), nil
	}

	content, err := s.client.CompleteJSON(ctx, enrichmentSystemPrompt, buildUserPrompt(input, candidates))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("enrichment request failed, using fallback", logging.Error(err))
		return s.fallback(input), nil
	}
	s.logger.Debug("enrichment response", logging.String("payload", content))

	var raw rawResult
	if err := DecodeModelJSON(content, &raw); err != nil {
		s.logger.Warn("enrichment response malformed, using fallback", logging.Error(err))
		return s.fallback(input), nil
	}

	result := s.sanitize(raw, input)

	if result.Artist.CountryCode == CountryUnknown && strings.TrimSpace(result.Artist.Name) != "" {
		s.resolveCountry(ctx, result)
	}

	return result, nil
}

// rawResult mirrors the JSON shape requested from the model; every field is
// optional and untrusted.
type rawResult struct {
	Artist struct {
		Name            string  `json:"name"`
		CountryCode     string  `json:"countryCode"`
		CountryName     *string `json:"countryName"`
		DiscogsArtistID int64   `json:"discogsArtistId"`
	} `json:"artist"`
	Record struct {
		Title            string `json:"title"`
		YearOriginal     string `json:"yearOriginal"`
		Format           string `json:"format"`
		DiscogsMasterID  int64  `json:"discogsMasterId"`
		DiscogsReleaseID int64  `json:"discogsReleaseId"`
	} `json:"record"`
}

// sanitize enforces the output contract regardless of what the model said.
func (s *Service) sanitize(raw rawResult, input Input) *Result {
	result := &Result{}

	result.Artist.Name = strings.TrimSpace(raw.Artist.Name)
	if result.Artist.Name == "" {
		result.Artist.Name = textutil.TitleCase(input.RawArtist)
	}
	result.Artist.CountryCode = sanitizeCountryCode(raw.Artist.CountryCode)
	if result.Artist.CountryCode == CountryUnknown {
		result.Artist.CountryName = nil
	} else if raw.Artist.CountryName != nil {
		name := strings.TrimSpace(*raw.Artist.CountryName)
		if name != "" {
			result.Artist.CountryName = &name
		}
	}
	result.Artist.DiscogsArtistID = raw.Artist.DiscogsArtistID

	result.Record.Title = strings.TrimSpace(raw.Record.Title)
	if result.Record.Title == "" {
		result.Record.Title = textutil.TitleCase(input.RawTitle)
	}
	result.Record.YearOriginal = sanitizeYear(raw.Record.YearOriginal)
	result.Record.Format = vinyl.NormalizeGuess(raw.Record.Format)
	result.Record.DiscogsMasterID = raw.Record.DiscogsMasterID
	result.Record.DiscogsReleaseID = raw.Record.DiscogsReleaseID

	return result
}

// resolveCountry issues one follow-up request asking only for the artist's
// country. The answer is accepted only when it is a valid 2-letter code.
func (s *Service) resolveCountry(ctx context.Context, result *Result) {
	prompt := fmt.Sprintf("Artist: %s\nRespond with the artist's country of origin.", result.Artist.Name)
	content, err := s.client.CompleteJSON(ctx, countrySystemPrompt, prompt)
	if err != nil {
		s.logger.Debug("country follow-up failed", logging.Error(err))
		return
	}

	var answer struct {
		CountryCode string  `json:"countryCode"`
		CountryName *string `json:"countryName"`
	}
	if err := DecodeModelJSON(content, &answer); err != nil {
		s.logger.Debug("country follow-up malformed", logging.Error(err))
		return
	}

	code := sanitizeCountryCode(answer.CountryCode)
	if code == CountryUnknown {
		return
	}
	result.Artist.CountryCode = code
	if answer.CountryName != nil {
		name := strings.TrimSpace(*answer.CountryName)
		if name != "" {
			result.Artist.CountryName = &name
		}
	}
}

func (s *Service) fallback(input Input) *Result {
	return &Result{
		Artist: ArtistInfo{
			Name:        textutil.TitleCase(input.RawArtist),
			CountryCode: CountryUnknown,
			CountryName: nil,
		},
		Record: RecordInfo{
			Title:        textutil.TitleCase(input.RawTitle),
			YearOriginal: "0000",
			Format:       vinyl.FormatUnknown,
		},
		Fallback: true,
	}
}

func sanitizeCountryCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !countryCodePattern.MatchString(code) {
		return CountryUnknown
	}
	return code
}

func sanitizeYear(year string) string {
	year = strings.TrimSpace(year)
	if !yearPattern.MatchString(year) {
		return "0000"
	}
	return year
}

func buildUserPrompt(input Input, candidates []discogs.Candidate) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "User input:\n  artist: %s\n  title: %s\n", input.RawArtist, input.RawTitle)
	fmt.Fprintf(&builder, "Canonical forms:\n  artist: %s\n  title: %s\n", input.ArtistCanonical, input.RecordCanonical)

	limit := promptCandidateLimit
	if len(candidates) < limit {
		limit = len(candidates)
	}
	if limit > 0 {
		builder.WriteString("Catalog candidates (best match first):\n")
		for i := 0; i < limit; i++ {
			candidate := candidates[i]
			year := ""
			if len(candidate.Years) > 0 {
				year = candidate.Years[0]
			}
			format := ""
			if candidate.Format != "" && candidate.Format != vinyl.FormatUnknown {
				format = string(candidate.Format)
			}
			fmt.Fprintf(&builder, "  %d. artist=%q title=%q year=%q format=%q masterId=%d releaseId=%d\n",
				i+1, candidate.ArtistName, candidate.Title, year, format, candidate.MasterID, candidate.ReleaseID)
		}
	} else {
		builder.WriteString("Catalog candidates: none\n")
	}
	return builder.String()
}
