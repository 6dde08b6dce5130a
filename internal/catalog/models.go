// Package catalog persists the permanent collection: artists, records, and
// the editions a user owns. It also finalizes READY drafts into catalog rows
// inside one transaction, with content-addressed cover storage.
package catalog

import (
	"time"

	"vault/internal/vinyl"
)

// Artist is a shared lookup entity keyed by canonical name and country.
type Artist struct {
	ID            int64
	Name          string
	NameCanonical string
	Slug          string
	CountryCode   string
	CountryName   *string
	CreatedAt     time.Time
}

// Record is a shared catalog entry keyed by artist, canonical title, and
// original year.
type Record struct {
	ID               int64
	ArtistID         int64
	Title            string
	TitleCanonical   string
	Slug             string
	YearOriginal     string
	Format           vinyl.Format
	CoverURL         *string
	CoverHash        *string
	DiscogsMasterID  *int64
	DiscogsReleaseID *int64
	SourceConfidence *float64
	CreatedAt        time.Time
}

// Edition is one owner's physical copy of a record.
type Edition struct {
	ID        int64
	OwnerID   int64
	RecordID  int64
	CoverFile *string
	Notes     *string
	CreatedAt time.Time
}

// CollectionItem is one row of an owner's collection listing.
type CollectionItem struct {
	EditionID    int64
	ArtistName   string
	CountryCode  string
	Title        string
	YearOriginal string
	Format       vinyl.Format
	CoverFile    string
	AddedAt      time.Time
}
