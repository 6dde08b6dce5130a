package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vault/internal/textutil"
	"vault/internal/vinyl"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open vault database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier abstracts *sql.DB and *sql.Tx so find-or-create helpers run both
// standalone and inside the finalize transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ExistsDuplicate reports whether the owner already holds an edition whose
// record matches the canonical artist, canonical title, and year exactly.
func (s *Store) ExistsDuplicate(ctx context.Context, ownerID int64, artistCanonical, recordCanonical, year string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
            SELECT 1 FROM editions e
            JOIN records r ON r.id = e.record_id
            JOIN artists a ON a.id = r.artist_id
            WHERE e.owner_id = ? AND a.name_canonical = ?
              AND r.title_canonical = ? AND r.year_original = ?
        )`,
		ownerID, artistCanonical, recordCanonical, year,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("duplicate probe: %w", err)
	}
	return exists == 1, nil
}

// findOrCreateArtist returns the artist matching (nameCanonical, countryCode),
// inserting it when absent. A unique-constraint race is recovered by
// re-reading the committed row.
func (s *Store) findOrCreateArtist(ctx context.Context, q querier, name, countryCode string, countryName *string) (*Artist, error) {
	nameCanonical := textutil.Canonicalize(name)
	if nameCanonical == "" {
		return nil, errors.New("artist name required")
	}

	artist, err := s.getArtist(ctx, q, nameCanonical, countryCode)
	if err != nil {
		return nil, err
	}
	if artist != nil {
		return artist, nil
	}

	now := time.Now().UTC()
	res, err := q.ExecContext(ctx,
		`INSERT INTO artists (name, name_canonical, slug, country_code, country_name, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		name, nameCanonical, textutil.Slugify(name), countryCode,
		nullableStringPtr(countryName),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			artist, findErr := s.getArtist(ctx, q, nameCanonical, countryCode)
			if findErr != nil {
				return nil, findErr
			}
			if artist != nil {
				return artist, nil
			}
		}
		return nil, fmt.Errorf("insert artist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read artist id: %w", err)
	}
	return &Artist{
		ID:            id,
		Name:          name,
		NameCanonical: nameCanonical,
		Slug:          textutil.Slugify(name),
		CountryCode:   countryCode,
		CountryName:   countryName,
		CreatedAt:     now,
	}, nil
}

func (s *Store) getArtist(ctx context.Context, q querier, nameCanonical, countryCode string) (*Artist, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, name_canonical, slug, country_code, country_name, created_at
         FROM artists WHERE name_canonical = ? AND country_code = ?`,
		nameCanonical, countryCode,
	)
	var (
		artist      Artist
		countryName sql.NullString
		createdAt   string
	)
	err := row.Scan(&artist.ID, &artist.Name, &artist.NameCanonical, &artist.Slug,
		&artist.CountryCode, &countryName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}
	if countryName.Valid {
		artist.CountryName = &countryName.String
	}
	if artist.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("artist created_at: %w", err)
	}
	return &artist, nil
}

// recordFields carries the optional provenance columns set on a new record.
type recordFields struct {
	CoverURL         *string
	CoverHash        *string
	DiscogsMasterID  *int64
	DiscogsReleaseID *int64
	SourceConfidence *float64
}

// findOrCreateRecord returns the record matching (artist, titleCanonical,
// yearOriginal), inserting it when absent. The second return reports whether
// the row was created by this call.
func (s *Store) findOrCreateRecord(ctx context.Context, q querier, artistID int64, title, yearOriginal string, format vinyl.Format, fields recordFields) (*Record, bool, error) {
	titleCanonical := textutil.Canonicalize(title)
	if titleCanonical == "" {
		return nil, false, errors.New("record title required")
	}

	record, err := s.getRecord(ctx, q, artistID, titleCanonical, yearOriginal)
	if err != nil {
		return nil, false, err
	}
	if record != nil {
		return record, false, nil
	}

	now := time.Now().UTC()
	res, err := q.ExecContext(ctx,
		`INSERT INTO records (
            artist_id, title, title_canonical, slug, year_original, format,
            cover_url, cover_hash, discogs_master_id, discogs_release_id,
            source_confidence, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artistID, title, titleCanonical, textutil.Slugify(title), yearOriginal, format,
		nullableStringPtr(fields.CoverURL),
		nullableStringPtr(fields.CoverHash),
		nullableInt64Ptr(fields.DiscogsMasterID),
		nullableInt64Ptr(fields.DiscogsReleaseID),
		nullableFloat64Ptr(fields.SourceConfidence),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			record, findErr := s.getRecord(ctx, q, artistID, titleCanonical, yearOriginal)
			if findErr != nil {
				return nil, false, findErr
			}
			if record != nil {
				return record, false, nil
			}
		}
		return nil, false, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("read record id: %w", err)
	}
	return &Record{
		ID:               id,
		ArtistID:         artistID,
		Title:            title,
		TitleCanonical:   titleCanonical,
		Slug:             textutil.Slugify(title),
		YearOriginal:     yearOriginal,
		Format:           format,
		CoverURL:         fields.CoverURL,
		CoverHash:        fields.CoverHash,
		DiscogsMasterID:  fields.DiscogsMasterID,
		DiscogsReleaseID: fields.DiscogsReleaseID,
		SourceConfidence: fields.SourceConfidence,
		CreatedAt:        now,
	}, true, nil
}

func (s *Store) getRecord(ctx context.Context, q querier, artistID int64, titleCanonical, yearOriginal string) (*Record, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, artist_id, title, title_canonical, slug, year_original, format,
                cover_url, cover_hash, discogs_master_id, discogs_release_id,
                source_confidence, created_at
         FROM records WHERE artist_id = ? AND title_canonical = ? AND year_original = ?`,
		artistID, titleCanonical, yearOriginal,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		record     Record
		rawFormat  string
		coverURL   sql.NullString
		coverHash  sql.NullString
		masterID   sql.NullInt64
		releaseID  sql.NullInt64
		confidence sql.NullFloat64
		createdAt  string
	)
	err := row.Scan(&record.ID, &record.ArtistID, &record.Title, &record.TitleCanonical,
		&record.Slug, &record.YearOriginal, &rawFormat,
		&coverURL, &coverHash, &masterID, &releaseID, &confidence, &createdAt)
	if err != nil {
		return nil, err
	}
	if record.Format, err = vinyl.ParseFormat(rawFormat); err != nil {
		return nil, err
	}
	if coverURL.Valid {
		record.CoverURL = &coverURL.String
	}
	if coverHash.Valid {
		record.CoverHash = &coverHash.String
	}
	if masterID.Valid {
		record.DiscogsMasterID = &masterID.Int64
	}
	if releaseID.Valid {
		record.DiscogsReleaseID = &releaseID.Int64
	}
	if confidence.Valid {
		record.SourceConfidence = &confidence.Float64
	}
	if record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("record created_at: %w", err)
	}
	return &record, nil
}

// insertEdition links the owner to a record, with an optional stored cover
// file and notes.
func (s *Store) insertEdition(ctx context.Context, q querier, ownerID, recordID int64, coverFile, notes *string) (int64, error) {
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx,
		`INSERT INTO editions (owner_id, record_id, cover_file, notes, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		ownerID, recordID,
		nullableStringPtr(coverFile),
		nullableStringPtr(notes),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert edition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read edition id: %w", err)
	}
	return id, nil
}

// ListCollection returns the owner's editions, newest first.
func (s *Store) ListCollection(ctx context.Context, ownerID int64, limit, offset int) ([]CollectionItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, a.name, a.country_code, r.title, r.year_original, r.format,
                COALESCE(e.cover_file, ''), e.created_at
         FROM editions e
         JOIN records r ON r.id = e.record_id
         JOIN artists a ON a.id = r.artist_id
         WHERE e.owner_id = ?
         ORDER BY e.created_at DESC, e.id DESC
         LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	var items []CollectionItem
	for rows.Next() {
		var (
			item      CollectionItem
			rawFormat string
			createdAt string
		)
		if err := rows.Scan(&item.EditionID, &item.ArtistName, &item.CountryCode, &item.Title,
			&item.YearOriginal, &rawFormat, &item.CoverFile, &createdAt); err != nil {
			return nil, fmt.Errorf("scan collection item: %w", err)
		}
		if item.Format, err = vinyl.ParseFormat(rawFormat); err != nil {
			return nil, err
		}
		if item.AddedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("edition created_at: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection: %w", err)
	}
	return items, nil
}

// CountCollection returns the owner's edition count.
func (s *Store) CountCollection(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM editions WHERE owner_id = ?`, ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count collection: %w", err)
	}
	return count, nil
}

func nullableStringPtr(value *string) any {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return *value
}

func nullableInt64Ptr(value *int64) any {
	if value == nil || *value == 0 {
		return nil
	}
	return *value
}

func nullableFloat64Ptr(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
