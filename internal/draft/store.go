package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store manages draft persistence backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open vault database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const draftColumns = `id, owner_id, artist_canonical, record_canonical, status,
    input_json, catalog_json, enrichment_json, resolved_json, duplicate_json,
    attempts, last_error, created_at, updated_at, expires_at`

// Create inserts a new PENDING draft. When the partial unique index rejects
// the insert because another request won the race, the committed row is
// re-read and returned with created=false.
func (s *Store) Create(ctx context.Context, ownerID int64, input Input, ttl time.Duration) (*Draft, bool, error) {
	now := time.Now().UTC()
	inputJSON, err := marshalDocument(input)
	if err != nil {
		return nil, false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (
            owner_id, artist_canonical, record_canonical, status,
            input_json, attempts, created_at, updated_at, expires_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		ownerID,
		input.ArtistCanonical,
		input.RecordCanonical,
		StatusPending,
		inputJSON,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		now.Add(ttl).Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.FindActive(ctx, ownerID, input.ArtistCanonical, input.RecordCanonical)
			if findErr != nil {
				return nil, false, fmt.Errorf("recover from unique violation: %w", findErr)
			}
			if existing != nil {
				return existing, false, nil
			}
			// The blocking row is an expired draft the purge has not seen
			// yet. Clear it and try once more.
			if clearErr := s.clearExpiredBlocker(ctx, ownerID, input, now); clearErr == nil {
				return s.retryCreate(ctx, ownerID, input, inputJSON, ttl)
			}
		}
		return nil, false, fmt.Errorf("insert draft: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("read draft id: %w", err)
	}
	created, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if created == nil {
		return nil, false, errors.New("draft missing after insert")
	}
	return created, true, nil
}

func (s *Store) clearExpiredBlocker(ctx context.Context, ownerID int64, input Input, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts
         WHERE owner_id = ? AND artist_canonical = ? AND record_canonical = ?
           AND status IN (?, ?) AND expires_at <= ?`,
		ownerID, input.ArtistCanonical, input.RecordCanonical,
		StatusPending, StatusReady,
		now.Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) retryCreate(ctx context.Context, ownerID int64, input Input, inputJSON string, ttl time.Duration) (*Draft, bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (
            owner_id, artist_canonical, record_canonical, status,
            input_json, attempts, created_at, updated_at, expires_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		ownerID,
		input.ArtistCanonical,
		input.RecordCanonical,
		StatusPending,
		inputJSON,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		now.Add(ttl).Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert draft after clearing expired row: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("read draft id: %w", err)
	}
	created, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if created == nil {
		return nil, false, errors.New("draft missing after insert")
	}
	return created, true, nil
}

// GetByID returns the draft or nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %d: %w", id, err)
	}
	return d, nil
}

// FindActive returns the unexpired PENDING or READY draft for the owner and
// canonical pair, or nil when none exists.
func (s *Store) FindActive(ctx context.Context, ownerID int64, artistCanonical, recordCanonical string) (*Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts
         WHERE owner_id = ? AND artist_canonical = ? AND record_canonical = ?
           AND status IN (?, ?) AND expires_at > ?`,
		ownerID, artistCanonical, recordCanonical,
		StatusPending, StatusReady,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active draft: %w", err)
	}
	return d, nil
}

// Update persists every mutable field of the draft and bumps updated_at.
func (s *Store) Update(ctx context.Context, d *Draft) error {
	if d == nil || d.ID == 0 {
		return errors.New("update draft: missing id")
	}
	catalogJSON, err := marshalOptional(d.Catalog)
	if err != nil {
		return err
	}
	enrichmentJSON, err := marshalOptional(d.Enrichment)
	if err != nil {
		return err
	}
	resolvedJSON, err := marshalOptional(d.Resolved)
	if err != nil {
		return err
	}
	duplicateJSON, err := marshalOptional(d.DuplicateProbe)
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE drafts SET
            status = ?, catalog_json = ?, enrichment_json = ?,
            resolved_json = ?, duplicate_json = ?, attempts = ?,
            last_error = ?, updated_at = ?
         WHERE id = ?`,
		d.Status,
		catalogJSON,
		enrichmentJSON,
		resolvedJSON,
		duplicateJSON,
		d.Attempts,
		nullableString(d.LastError),
		d.UpdatedAt.Format(time.RFC3339Nano),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("update draft %d: %w", d.ID, err)
	}
	return nil
}

// Cancel marks a non-terminal draft CANCELLED. It reports whether a row
// changed; cancelling a terminal or missing draft is a no-op.
func (s *Store) Cancel(ctx context.Context, id, ownerID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET status = ?, updated_at = ?
         WHERE id = ? AND owner_id = ? AND status IN (?, ?)`,
		StatusCancelled,
		time.Now().UTC().Format(time.RFC3339Nano),
		id, ownerID,
		StatusPending, StatusReady,
	)
	if err != nil {
		return false, fmt.Errorf("cancel draft %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel draft %d: rows affected: %w", id, err)
	}
	return affected > 0, nil
}

// Delete removes a draft row, optionally inside a caller-owned transaction.
func (s *Store) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	}
	if err != nil {
		return fmt.Errorf("delete draft %d: %w", id, err)
	}
	return nil
}

// PurgeExpired deletes expired and terminal drafts and returns the count.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE expires_at <= ? OR status IN (?, ?)`,
		now.UTC().Format(time.RFC3339Nano),
		StatusDone, StatusCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("purge drafts: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge drafts: rows affected: %w", err)
	}
	return removed, nil
}

// ListRetryable returns unexpired PENDING drafts below the attempt cap that
// have not been touched within the backoff window. This covers both drafts
// that recorded a failure and drafts whose dispatch was lost, for example
// across a daemon restart.
func (s *Store) ListRetryable(ctx context.Context, now time.Time, maxAttempts int, backoff time.Duration) ([]*Draft, error) {
	cutoff := now.Add(-backoff).UTC().Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+draftColumns+` FROM drafts
         WHERE status = ? AND attempts < ?
           AND expires_at > ? AND updated_at <= ?
         ORDER BY updated_at ASC`,
		StatusPending, maxAttempts,
		now.UTC().Format(time.RFC3339Nano), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list retryable drafts: %w", err)
	}
	defer rows.Close()
	return collectDrafts(rows)
}

// ListByOwner returns the owner's drafts, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]*Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+draftColumns+` FROM drafts
         WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list drafts for owner %d: %w", ownerID, err)
	}
	defer rows.Close()
	return collectDrafts(rows)
}

// Stats returns the number of drafts per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM drafts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("draft stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var raw string
		var count int
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, fmt.Errorf("scan draft stats: %w", err)
		}
		status, err := ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draft stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var (
		d              Draft
		rawStatus      string
		inputJSON      string
		catalogJSON    sql.NullString
		enrichmentJSON sql.NullString
		resolvedJSON   sql.NullString
		duplicateJSON  sql.NullString
		lastError      sql.NullString
		createdAt      string
		updatedAt      string
		expiresAt      string
	)
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.ArtistCanonical, &d.RecordCanonical, &rawStatus,
		&inputJSON, &catalogJSON, &enrichmentJSON, &resolvedJSON, &duplicateJSON,
		&d.Attempts, &lastError, &createdAt, &updatedAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}

	if d.Status, err = ParseStatus(rawStatus); err != nil {
		return nil, err
	}
	if _, err := unmarshalDocument(inputJSON, &d.Input); err != nil {
		return nil, fmt.Errorf("draft %d input: %w", d.ID, err)
	}
	if catalogJSON.Valid {
		if err := decodeOptional(catalogJSON.String, &d.Catalog); err != nil {
			return nil, fmt.Errorf("draft %d catalog: %w", d.ID, err)
		}
	}
	if enrichmentJSON.Valid {
		if err := decodeOptional(enrichmentJSON.String, &d.Enrichment); err != nil {
			return nil, fmt.Errorf("draft %d enrichment: %w", d.ID, err)
		}
	}
	if resolvedJSON.Valid {
		if err := decodeOptional(resolvedJSON.String, &d.Resolved); err != nil {
			return nil, fmt.Errorf("draft %d resolved: %w", d.ID, err)
		}
	}
	if duplicateJSON.Valid {
		if err := decodeOptional(duplicateJSON.String, &d.DuplicateProbe); err != nil {
			return nil, fmt.Errorf("draft %d duplicate probe: %w", d.ID, err)
		}
	}
	if lastError.Valid {
		d.LastError = lastError.String
	}
	if d.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("draft %d created_at: %w", d.ID, err)
	}
	if d.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("draft %d updated_at: %w", d.ID, err)
	}
	if d.ExpiresAt, err = parseTimestamp(expiresAt); err != nil {
		return nil, fmt.Errorf("draft %d expires_at: %w", d.ID, err)
	}
	return &d, nil
}

func collectDrafts(rows *sql.Rows) ([]*Draft, error) {
	var drafts []*Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return drafts, nil
}

// decodeOptional decodes a stored document into **T, allocating the target
// only when the document carries data.
func decodeOptional[T any](raw string, target **T) error {
	var value T
	ok, err := unmarshalDocument(raw, &value)
	if err != nil {
		return err
	}
	if ok {
		*target = &value
	}
	return nil
}

// marshalOptional encodes a nullable document pointer for storage.
func marshalOptional[T any](value *T) (any, error) {
	if value == nil {
		return nil, nil
	}
	encoded, err := marshalDocument(value)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
