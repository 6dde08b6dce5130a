// Package discogs implements the external catalog search client. It wraps
// the Discogs database search, release detail, and master versions endpoints
// with scoring, cover ranking, and retry handling. Search degrades to an
// empty candidate list when the provider is unavailable; callers tolerate
// partial results.
package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"vault/internal/config"
	"vault/internal/logging"
	"vault/internal/vinyl"
)

const (
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 10 * time.Second

	// dominantMasterLimit bounds how many frequently seen masters get a
	// versions lookup; detailFetchLimit bounds release detail fetches per
	// search; versionsPerPage bounds the versions page size.
	dominantMasterLimit = 2
	detailFetchLimit    = 8
	versionsPerPage     = 20
)

// Searcher is the narrow interface the pipeline consumes.
type Searcher interface {
	Search(ctx context.Context, artistCanonical, recordCanonical string) ([]Candidate, error)
}

// Client queries the Discogs API.
type Client struct {
	token      string
	baseURL    string
	userAgent  string
	perPage    int
	httpClient *http.Client
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleep            func(time.Duration)
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request and rate-limit observability.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleep = sleeper
		}
	}
}

// New creates a Discogs client from configuration.
func New(cfg config.Discogs, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discogs token required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("discogs base url required")
	}
	client := &Client{
		token:            token,
		baseURL:          baseURL,
		userAgent:        cfg.UserAgent,
		perPage:          cfg.PerPage,
		httpClient:       &http.Client{Timeout: 15 * time.Second},
		logger:           logging.NewNop(),
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		sleep:            time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search returns scored candidates for the canonical artist/title pair.
// Provider failures after retries yield an empty slice, not an error.
func (c *Client) Search(ctx context.Context, artistCanonical, recordCanonical string) ([]Candidate, error) {
	results, err := c.structuredSearch(ctx, artistCanonical, recordCanonical)
	if err != nil {
		c.logger.Warn("discogs structured search failed", logging.Error(err))
		results = nil
	}
	if len(results) == 0 {
		fallback, err := c.freeTextSearch(ctx, artistCanonical+" "+recordCanonical)
		if err != nil {
			c.logger.Warn("discogs free-text search failed", logging.Error(err))
			return nil, nil
		}
		results = fallback
	}

	candidates := c.buildCandidates(results, artistCanonical, recordCanonical)
	if len(candidates) == 0 {
		return nil, nil
	}

	c.expandDominantMasters(ctx, &candidates, artistCanonical, recordCanonical)
	c.fetchDetails(ctx, candidates)

	for i := range candidates {
		candidates[i].Covers = rankCovers(candidates[i].Covers)
	}
	return candidates, nil
}

func (c *Client) structuredSearch(ctx context.Context, artist, title string) ([]searchResult, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("release_title", title)
	params.Set("format", "Vinyl")
	params.Set("type", "release")
	params.Set("sort", "year")
	params.Set("sort_order", "asc")
	if c.perPage > 0 {
		params.Set("per_page", strconv.Itoa(c.perPage))
	}
	var payload searchResponse
	if err := c.get(ctx, "/database/search", params, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

func (c *Client) freeTextSearch(ctx context.Context, query string) ([]searchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "Vinyl")
	params.Set("type", "release")
	if c.perPage > 0 {
		params.Set("per_page", strconv.Itoa(c.perPage))
	}
	var payload searchResponse
	if err := c.get(ctx, "/database/search", params, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// buildCandidates filters unusable results, scores the rest, and sorts
// descending by score.
func (c *Client) buildCandidates(results []searchResult, artistCanonical, recordCanonical string) []Candidate {
	candidates := make([]Candidate, 0, len(results))
	for _, result := range results {
		if result.Status != "" && result.Status != "Accepted" {
			continue
		}
		if strings.TrimSpace(result.Country) == "" {
			continue
		}
		if !usableImageURL(result.CoverImage) && !usableImageURL(result.Thumb) {
			continue
		}
		artistName, recordTitle := splitSearchTitle(result.Title)
		candidate := Candidate{
			ArtistName: artistName,
			Title:      recordTitle,
			MasterID:   result.MasterID,
			ReleaseID:  result.ID,
			Countries:  []string{result.Country},
			Format:     vinyl.FromDiscogs(result.Format),
		}
		if strings.TrimSpace(result.Year) != "" {
			candidate.Years = []string{result.Year}
		}
		if usableImageURL(result.CoverImage) {
			candidate.Covers = append(candidate.Covers, Cover{URL: result.CoverImage, Source: CoverSourceSearch})
		} else {
			candidate.Covers = append(candidate.Covers, Cover{URL: result.Thumb, Source: CoverSourceSearch})
		}
		candidate.Score = scoreCandidate(candidate, artistCanonical, recordCanonical)
		candidates = append(candidates, candidate)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// expandDominantMasters finds the most frequent master ids across the
// candidate pool and folds their known pressings into the pool.
func (c *Client) expandDominantMasters(ctx context.Context, candidates *[]Candidate, artistCanonical, recordCanonical string) {
	frequency := make(map[int64]int)
	for _, candidate := range *candidates {
		if candidate.MasterID > 0 {
			frequency[candidate.MasterID]++
		}
	}
	masters := make([]int64, 0, len(frequency))
	for id := range frequency {
		masters = append(masters, id)
	}
	sort.Slice(masters, func(i, j int) bool {
		if frequency[masters[i]] != frequency[masters[j]] {
			return frequency[masters[i]] > frequency[masters[j]]
		}
		return masters[i] < masters[j]
	})
	if len(masters) > dominantMasterLimit {
		masters = masters[:dominantMasterLimit]
	}

	known := make(map[int64]bool, len(*candidates))
	for _, candidate := range *candidates {
		known[candidate.ReleaseID] = true
	}

	for _, masterID := range masters {
		versions, err := c.masterVersions(ctx, masterID)
		if err != nil {
			c.logger.Warn("discogs master versions fetch failed",
				logging.Int64("master_id", masterID), logging.Error(err))
			continue
		}
		for _, version := range versions.Versions {
			if version.Status != "" && version.Status != "Accepted" {
				continue
			}
			if known[version.ID] {
				continue
			}
			known[version.ID] = true
			candidate := Candidate{
				Title:     version.Title,
				MasterID:  masterID,
				ReleaseID: version.ID,
				Format:    vinyl.FromDiscogs([]string{version.Format}),
			}
			if strings.TrimSpace(version.Country) != "" {
				candidate.Countries = []string{version.Country}
			}
			if year := yearFromReleased(version.Released); year != "" {
				candidate.Years = []string{year}
			}
			if usableImageURL(version.Thumb) {
				candidate.Covers = append(candidate.Covers, Cover{URL: version.Thumb, Source: CoverSourceSearch})
			}
			candidate.Score = scoreCandidate(candidate, artistCanonical, recordCanonical)
			*candidates = append(*candidates, candidate)
		}

		if master, err := c.masterDetail(ctx, masterID); err == nil {
			c.mergeMasterImages(*candidates, masterID, master.Images)
		}
	}

	sort.SliceStable(*candidates, func(i, j int) bool {
		return (*candidates)[i].Score > (*candidates)[j].Score
	})
}

type masterResponse struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Year   int          `json:"year"`
	Images []imageEntry `json:"images"`
}

func (c *Client) masterDetail(ctx context.Context, masterID int64) (*masterResponse, error) {
	var payload masterResponse
	if err := c.get(ctx, fmt.Sprintf("/masters/%d", masterID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) masterVersions(ctx context.Context, masterID int64) (*versionsResponse, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(versionsPerPage))
	var payload versionsResponse
	if err := c.get(ctx, fmt.Sprintf("/masters/%d/versions", masterID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// mergeMasterImages attaches master-sourced images to every candidate under
// that master. Master images are the authoritative artwork for the work.
func (c *Client) mergeMasterImages(candidates []Candidate, masterID int64, images []imageEntry) {
	for i := range candidates {
		if candidates[i].MasterID != masterID {
			continue
		}
		for _, image := range images {
			if !usableImageURL(image.URI) {
				continue
			}
			candidates[i].Covers = append(candidates[i].Covers, Cover{
				URL:    image.URI,
				Width:  image.Width,
				Height: image.Height,
				Source: CoverSourceMaster,
				Kind:   strings.ToLower(image.Type),
			})
		}
	}
}

// fetchDetails enriches the top candidates with release detail data,
// merging fields by release id without overwriting populated values.
func (c *Client) fetchDetails(ctx context.Context, candidates []Candidate) {
	limit := detailFetchLimit
	if len(candidates) < limit {
		limit = len(candidates)
	}
	for i := 0; i < limit; i++ {
		candidate := &candidates[i]
		if candidate.ReleaseID <= 0 {
			continue
		}
		detail, err := c.releaseDetail(ctx, candidate.ReleaseID)
		if err != nil {
			c.logger.Warn("discogs release detail fetch failed",
				logging.Int64("release_id", candidate.ReleaseID), logging.Error(err))
			continue
		}
		mergeDetail(candidate, detail)
	}
}

func (c *Client) releaseDetail(ctx context.Context, releaseID int64) (*releaseResponse, error) {
	var payload releaseResponse
	if err := c.get(ctx, fmt.Sprintf("/releases/%d", releaseID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func mergeDetail(candidate *Candidate, detail *releaseResponse) {
	if len(detail.Artists) > 0 {
		if candidate.ArtistID == 0 {
			candidate.ArtistID = detail.Artists[0].ID
		}
		if strings.TrimSpace(candidate.ArtistName) == "" {
			candidate.ArtistName = cleanArtistName(detail.Artists[0].Name)
		}
	}
	if strings.TrimSpace(candidate.Title) == "" {
		candidate.Title = detail.Title
	}
	if detail.Year > 0 {
		candidate.Years = appendUnique(candidate.Years, strconv.Itoa(detail.Year))
	}
	if strings.TrimSpace(detail.Country) != "" {
		candidate.Countries = appendUnique(candidate.Countries, detail.Country)
	}
	if candidate.Format == "" || candidate.Format == vinyl.FormatUnknown {
		var descriptors []string
		for _, format := range detail.Formats {
			descriptors = append(descriptors, format.Name)
			descriptors = append(descriptors, format.Descriptions...)
		}
		if len(descriptors) > 0 {
			candidate.Format = vinyl.FromDiscogs(descriptors)
		}
	}
	for _, image := range detail.Images {
		if !usableImageURL(image.URI) {
			continue
		}
		candidate.Covers = append(candidate.Covers, Cover{
			URL:    image.URI,
			Width:  image.Width,
			Height: image.Height,
			Source: CoverSourceRelease,
			Kind:   strings.ToLower(image.Type),
		})
	}
}

// get performs a GET against the API with retry on rate limits, server
// errors, and transport failures.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse discogs url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	endpoint.RawQuery = params.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		err := c.doRequest(ctx, endpoint.String(), out)
		if err == nil {
			return nil
		}
		lastErr = err

		delay, retry := c.retryDelay(err, attempt)
		if !retry || attempt == c.retryMaxAttempts {
			break
		}
		c.logger.Debug("discogs request retry",
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.sleep(delay)
	}
	return lastErr
}

func (c *Client) doRequest(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if remaining := resp.Header.Get("X-Discogs-Ratelimit-Remaining"); remaining != "" {
		c.logger.Debug("discogs rate limit", logging.String("remaining", remaining))
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode discogs response: %w", err)
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("discogs returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("discogs returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) retryDelay(err error, attempt int) (time.Duration, bool) {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		case statusErr.StatusCode >= 500:
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay
	if delay <= 0 {
		delay = defaultRetryBaseDelay
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func parseRetryAfter(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(header); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}

// splitSearchTitle splits the combined "Artist - Title" search field.
func splitSearchTitle(combined string) (artist, title string) {
	parts := strings.SplitN(combined, " - ", 2)
	if len(parts) == 2 {
		return cleanArtistName(strings.TrimSpace(parts[0])), strings.TrimSpace(parts[1])
	}
	return "", strings.TrimSpace(combined)
}

// cleanArtistName drops the numeric disambiguation suffix Discogs appends
// to duplicate artist names, e.g. "Nirvana (2)".
func cleanArtistName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, " ("); idx > 0 && strings.HasSuffix(name, ")") {
		suffix := name[idx+2 : len(name)-1]
		if _, err := strconv.Atoi(suffix); err == nil {
			return name[:idx]
		}
	}
	return name
}

func yearFromReleased(released string) string {
	released = strings.TrimSpace(released)
	if len(released) >= 4 {
		year := released[:4]
		if _, err := strconv.Atoi(year); err == nil {
			return year
		}
	}
	return ""
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
