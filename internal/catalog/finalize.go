package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"vault/internal/discogs"
	"vault/internal/draft"
	"vault/internal/logging"
	"vault/internal/resolve"
	"vault/internal/textutil"
	"vault/internal/vinyl"
)

// Fatal finalize preconditions. These are programmer or caller invariants;
// no transaction is opened when one fails.
var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrOwnerMismatch = errors.New("draft owner mismatch")
	ErrDraftNotReady = errors.New("draft not ready")
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// FinalForm carries the user-confirmed values for finalization. Empty
// fields fall back to the draft's resolved values.
type FinalForm struct {
	ArtistName   string
	CountryCode  string
	CountryName  *string
	Title        string
	YearOriginal string
	Format       vinyl.Format
	// CoverIndex selects a resolved cover; negative means the resolved
	// default. CoverSource, when set, overrides the index with an uploaded
	// file path or a remote URL.
	CoverIndex  int
	CoverSource string
	Notes       *string
}

// Finalizer commits READY drafts into the permanent catalog.
type Finalizer struct {
	db     *sql.DB
	store  *Store
	drafts *draft.Store
	covers *CoverRepository
	logger *slog.Logger
}

// FinalizerOption customizes the finalizer.
type FinalizerOption func(*Finalizer)

// WithFinalizerLogger attaches a logger.
func WithFinalizerLogger(logger *slog.Logger) FinalizerOption {
	return func(f *Finalizer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFinalizer wires the finalize operation over one shared database.
func NewFinalizer(db *sql.DB, drafts *draft.Store, covers *CoverRepository, opts ...FinalizerOption) *Finalizer {
	finalizer := &Finalizer{
		db:     db,
		store:  NewStore(db),
		drafts: drafts,
		covers: covers,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(finalizer)
	}
	return finalizer
}

// Finalize turns a READY draft into artist, record, and edition rows inside
// one transaction, then deletes the draft. All steps succeed or none do.
func (f *Finalizer) Finalize(ctx context.Context, draftID, ownerID int64, form FinalForm) (int64, error) {
	d, err := f.drafts.GetByID(ctx, draftID)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, fmt.Errorf("finalize draft %d: %w", draftID, ErrDraftNotFound)
	}
	if d.OwnerID != ownerID {
		return 0, fmt.Errorf("finalize draft %d: %w", draftID, ErrOwnerMismatch)
	}
	if d.Status != draft.StatusReady {
		return 0, fmt.Errorf("finalize draft %d in status %s: %w", draftID, d.Status, ErrDraftNotReady)
	}

	merged := mergeForm(form, d.Resolved)
	coverSource := chooseCoverSource(form, d.Resolved)

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	artist, err := f.store.findOrCreateArtist(ctx, tx, merged.ArtistName, merged.CountryCode, merged.CountryName)
	if err != nil {
		return 0, fmt.Errorf("finalize draft %d: %w", draftID, err)
	}

	record, coverFile, err := f.ensureRecord(ctx, tx, d, artist, merged, coverSource)
	if err != nil {
		return 0, fmt.Errorf("finalize draft %d: %w", draftID, err)
	}

	editionID, err := f.store.insertEdition(ctx, tx, ownerID, record.ID, coverFile, form.Notes)
	if err != nil {
		return 0, fmt.Errorf("finalize draft %d: %w", draftID, err)
	}

	if err := f.drafts.Delete(ctx, tx, d.ID); err != nil {
		return 0, fmt.Errorf("finalize draft %d: %w", draftID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit finalize tx: %w", err)
	}

	f.logger.Info("draft finalized",
		logging.Int64("draft_id", d.ID),
		logging.Int64("owner_id", ownerID),
		logging.Int64("edition_id", editionID),
		logging.Int64("record_id", record.ID))
	return editionID, nil
}

// ensureRecord finds or creates the catalog record, materializing the cover
// only when this call creates the record.
func (f *Finalizer) ensureRecord(ctx context.Context, tx *sql.Tx, d *draft.Draft, artist *Artist, merged FinalForm, coverSource string) (*Record, *string, error) {
	titleCanonical := textutil.Canonicalize(merged.Title)
	existing, err := f.store.getRecord(ctx, tx, artist.ID, titleCanonical, merged.YearOriginal)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		// The record already carries its cover; reuse the stored file for
		// the new edition when one matches.
		var coverFile *string
		if existing.CoverHash != nil {
			if fileName, err := f.covers.findStoredByHash(ctx, tx, *existing.CoverHash); err == nil && fileName != "" {
				coverFile = &fileName
			}
		}
		return existing, coverFile, nil
	}

	fields := recordFields{
		DiscogsMasterID:  nonZero(resolvedMasterID(d.Resolved)),
		DiscogsReleaseID: nonZero(resolvedReleaseID(d.Resolved)),
		SourceConfidence: sourceConfidence(d),
	}

	var coverFile *string
	if coverSource != "" {
		stored, err := f.covers.Materialize(ctx, tx, coverSource, merged.ArtistName, merged.Title, merged.Format)
		if err != nil {
			return nil, nil, fmt.Errorf("materialize cover: %w", err)
		}
		coverFile = &stored.FileName
		fields.CoverURL = &stored.SourceURL
		fields.CoverHash = &stored.Hash
	}

	record, _, err := f.store.findOrCreateRecord(ctx, tx, artist.ID, merged.Title, merged.YearOriginal, merged.Format, fields)
	if err != nil {
		return nil, nil, err
	}
	return record, coverFile, nil
}

// mergeForm fills empty form fields from the resolved record and sanitizes
// the user-editable values.
func mergeForm(form FinalForm, resolved *resolve.Resolved) FinalForm {
	merged := form
	if resolved != nil {
		if strings.TrimSpace(merged.ArtistName) == "" {
			merged.ArtistName = resolved.Artist.Name
		}
		if strings.TrimSpace(merged.CountryCode) == "" {
			merged.CountryCode = resolved.Artist.CountryCode
			if merged.CountryName == nil {
				merged.CountryName = resolved.Artist.CountryName
			}
		}
		if strings.TrimSpace(merged.Title) == "" {
			merged.Title = resolved.Record.Title
		}
		if strings.TrimSpace(merged.YearOriginal) == "" {
			merged.YearOriginal = resolved.Record.YearOriginal
		}
		if merged.Format == "" {
			merged.Format = resolved.Record.Format
		}
	}

	merged.ArtistName = strings.TrimSpace(merged.ArtistName)
	merged.Title = strings.TrimSpace(merged.Title)
	merged.CountryCode = strings.ToUpper(strings.TrimSpace(merged.CountryCode))
	if !countryCodePattern.MatchString(merged.CountryCode) {
		merged.CountryCode = "XX"
	}
	if merged.CountryCode == "XX" {
		merged.CountryName = nil
	}
	if !resolve.ValidYear(merged.YearOriginal, time.Now()) {
		merged.YearOriginal = resolve.YearUnknown
	}
	if !merged.Format.Valid() {
		merged.Format = vinyl.FormatUnknown
	}
	return merged
}

// chooseCoverSource picks the cover to materialize: an uploaded source wins,
// else the selected resolved cover, else the resolved default.
func chooseCoverSource(form FinalForm, resolved *resolve.Resolved) string {
	if strings.TrimSpace(form.CoverSource) != "" {
		return strings.TrimSpace(form.CoverSource)
	}
	if resolved == nil || len(resolved.Covers) == 0 {
		return ""
	}
	index := form.CoverIndex
	if index < 0 {
		index = resolved.CoverDefaultIndex
	}
	if index < 0 || index >= len(resolved.Covers) {
		return ""
	}
	return resolved.Covers[index].URL
}

func resolvedMasterID(resolved *resolve.Resolved) int64 {
	if resolved == nil {
		return 0
	}
	return resolved.Record.DiscogsMasterID
}

func resolvedReleaseID(resolved *resolve.Resolved) int64 {
	if resolved == nil {
		return 0
	}
	return resolved.Record.DiscogsReleaseID
}

func nonZero(value int64) *int64 {
	if value == 0 {
		return nil
	}
	return &value
}

// sourceConfidence normalizes the winning candidate's match score into
// [0, 1]. Drafts resolved without a candidate carry no confidence.
func sourceConfidence(d *draft.Draft) *float64 {
	if d == nil || d.Catalog == nil {
		return nil
	}
	chosen := d.Catalog.Chosen
	if chosen < 0 || chosen >= len(d.Catalog.Candidates) {
		return nil
	}
	confidence := float64(d.Catalog.Candidates[chosen].Score) / float64(discogs.MaxScore)
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return &confidence
}
