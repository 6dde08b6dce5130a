package discogs

import "vault/internal/vinyl"

// Cover source values.
const (
	CoverSourceSearch  = "search"
	CoverSourceRelease = "release"
	CoverSourceMaster  = "master"
)

// CoverKindPrimary marks the image the provider designates as the main cover.
const CoverKindPrimary = "primary"

// Cover describes one candidate cover image.
type Cover struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Source string `json:"source"`
	Kind   string `json:"kind,omitempty"`
}

// Candidate is one search or detail result considered as a match for the
// user's input. Covers are ranked and capped before the candidate is stored.
type Candidate struct {
	ArtistName string       `json:"artistName"`
	ArtistID   int64        `json:"artistId,omitempty"`
	Title      string       `json:"title"`
	MasterID   int64        `json:"masterId,omitempty"`
	ReleaseID  int64        `json:"releaseId,omitempty"`
	Covers     []Cover      `json:"covers,omitempty"`
	Years      []string     `json:"years,omitempty"`
	Countries  []string     `json:"countries,omitempty"`
	Format     vinyl.Format `json:"format,omitempty"`
	Score      int          `json:"score"`
}

// SearchOutcome is the persisted result of one catalog search.
type SearchOutcome struct {
	Candidates []Candidate `json:"candidates"`
	// Chosen indexes the candidate the resolver picked, -1 before resolution.
	Chosen int `json:"chosen"`
}

// searchResponse models the Discogs /database/search payload.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID         int64    `json:"id"`
	Type       string   `json:"type"`
	Status     string   `json:"status"`
	MasterID   int64    `json:"master_id"`
	Title      string   `json:"title"`
	Year       string   `json:"year"`
	Country    string   `json:"country"`
	CoverImage string   `json:"cover_image"`
	Thumb      string   `json:"thumb"`
	Format     []string `json:"format"`
}

// releaseResponse models the Discogs /releases/{id} payload.
type releaseResponse struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
	Country string `json:"country"`
	Artists []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	Images  []imageEntry `json:"images"`
	Formats []struct {
		Name         string   `json:"name"`
		Descriptions []string `json:"descriptions"`
	} `json:"formats"`
}

type imageEntry struct {
	Type   string `json:"type"`
	URI    string `json:"uri"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// versionsResponse models the Discogs /masters/{id}/versions payload.
type versionsResponse struct {
	Versions []struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Country  string `json:"country"`
		Released string `json:"released"`
		Status   string `json:"status"`
		Format   string `json:"format"`
		Thumb    string `json:"thumb"`
	} `json:"versions"`
}
