// Package draft persists in-progress catalog additions and their lifecycle.
//
// A draft is created PENDING, mutated only by the pipeline worker, and leaves
// the table through finalization, cancellation, or the purge sweep. At most
// one unexpired PENDING or READY draft exists per owner and canonical
// artist/title pair; the database enforces this with a partial unique index.
package draft

import (
	"encoding/json"
	"fmt"
	"time"

	"vault/internal/discogs"
	"vault/internal/enrich"
	"vault/internal/resolve"
)

// documentVersion tags the JSON documents persisted on a draft so future
// schema changes can migrate or reject old payloads.
const documentVersion = 1

// Input snapshots the user's raw request and its canonical forms.
type Input struct {
	RawArtist       string `json:"rawArtist"`
	RawTitle        string `json:"rawTitle"`
	ArtistCanonical string `json:"artistCanonical"`
	RecordCanonical string `json:"recordCanonical"`
}

// DuplicateProbe snapshots the keys used to warn about an existing entry.
type DuplicateProbe struct {
	OwnerID         int64  `json:"ownerId"`
	ArtistCanonical string `json:"artistCanonical"`
	RecordCanonical string `json:"recordCanonical"`
	Year            string `json:"year"`
	Exists          bool   `json:"exists"`
}

// Draft is one persisted resolution attempt.
type Draft struct {
	ID              int64
	OwnerID         int64
	ArtistCanonical string
	RecordCanonical string
	Status          Status
	Input           Input
	Catalog         *discogs.SearchOutcome
	Enrichment      *enrich.Result
	Resolved        *resolve.Resolved
	DuplicateProbe  *DuplicateProbe
	Attempts        int
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
}

// Expired reports whether the draft's TTL has elapsed.
func (d *Draft) Expired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// document is the envelope wrapped around every JSON blob on the draft row.
type document struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func marshalDocument(data any) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	envelope, err := json.Marshal(document{Version: documentVersion, Data: encoded})
	if err != nil {
		return "", fmt.Errorf("encode document envelope: %w", err)
	}
	return string(envelope), nil
}

// unmarshalDocument decodes a stored envelope defensively: an empty column
// or missing data key yields no value and no error.
func unmarshalDocument(raw string, target any) (bool, error) {
	if raw == "" {
		return false, nil
	}
	var envelope document
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return false, fmt.Errorf("decode document envelope: %w", err)
	}
	if len(envelope.Data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return false, fmt.Errorf("decode document: %w", err)
	}
	return true, nil
}
