// Package pipeline drives draft resolution: idempotent start, the worker
// that runs catalog search, enrichment, resolution, and validation, and the
// background manager that dispatches, retries, and purges.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vault/internal/catalog"
	"vault/internal/config"
	"vault/internal/discogs"
	"vault/internal/draft"
	"vault/internal/enrich"
	"vault/internal/logging"
	"vault/internal/resolve"
	"vault/internal/textutil"
)

// Dispatcher delivers draft ids to the asynchronous worker. Delivery is
// at-least-once; the worker's status guard makes redelivery a no-op.
type Dispatcher interface {
	Dispatch(draftID int64)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(draftID int64)

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(draftID int64) { f(draftID) }

// Orchestrator owns draft lifecycle operations.
type Orchestrator struct {
	cfg        *config.Config
	drafts     *draft.Store
	catalog    *catalog.Store
	searcher   discogs.Searcher
	enricher   enrich.Enricher
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// OrchestratorOption customizes the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDispatcher sets the async job dispatcher. Without one, Start persists
// the draft but does not trigger the pipeline.
func WithDispatcher(dispatcher Dispatcher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.dispatcher = dispatcher
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wires the resolution pipeline.
func NewOrchestrator(cfg *config.Config, drafts *draft.Store, catalogStore *catalog.Store, searcher discogs.Searcher, enricher enrich.Enricher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		drafts:   drafts,
		catalog:  catalogStore,
		searcher: searcher,
		enricher: enricher,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start canonicalizes the input, returns the existing active draft when one
// matches, and otherwise creates a PENDING draft and dispatches its pipeline
// job. It never waits on external calls.
func (o *Orchestrator) Start(ctx context.Context, ownerID int64, rawArtist, rawTitle string) (*draft.Draft, error) {
	input := draft.Input{
		RawArtist:       strings.TrimSpace(rawArtist),
		RawTitle:        strings.TrimSpace(rawTitle),
		ArtistCanonical: textutil.Canonicalize(rawArtist),
		RecordCanonical: textutil.Canonicalize(rawTitle),
	}
	if input.ArtistCanonical == "" || input.RecordCanonical == "" {
		return nil, fmt.Errorf("start draft: artist and title required")
	}

	existing, err := o.drafts.FindActive(ctx, ownerID, input.ArtistCanonical, input.RecordCanonical)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	ttl := time.Duration(o.cfg.Draft.TTLHours) * time.Hour
	d, created, err := o.drafts.Create(ctx, ownerID, input, ttl)
	if err != nil {
		return nil, err
	}
	if created && o.dispatcher != nil {
		o.dispatcher.Dispatch(d.ID)
	}
	if created {
		o.logger.Info("draft started",
			logging.Int64("draft_id", d.ID),
			logging.Int64("owner_id", ownerID),
			logging.String("artist", input.ArtistCanonical),
			logging.String("title", input.RecordCanonical))
	}
	return d, nil
}

// RunDraft executes the pipeline for one draft. Missing drafts and drafts
// that are not PENDING are skipped so redelivered jobs stay harmless. All
// predictable failures are recorded on the draft; the draft always ends
// PENDING or READY.
func (o *Orchestrator) RunDraft(ctx context.Context, draftID int64) error {
	base := logging.WithContext(ctx, o.logger)

	d, err := o.drafts.GetByID(ctx, draftID)
	if err != nil {
		return err
	}
	if d == nil || d.Status != draft.StatusPending {
		base.Debug("skipping draft run", logging.Int64("draft_id", draftID))
		return nil
	}

	logger := base.With(logging.Int64("draft_id", d.ID), logging.Int64("owner_id", d.OwnerID))

	if runErr := o.resolveDraft(ctx, d); runErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.Attempts++
		d.LastError = runErr.Error()
		logger.Warn("draft run failed",
			logging.Int("attempts", d.Attempts),
			logging.Error(runErr))
		return o.drafts.Update(ctx, d)
	}

	d.Status = draft.StatusReady
	d.LastError = ""
	if err := o.drafts.Update(ctx, d); err != nil {
		return err
	}
	logger.Info("draft ready",
		logging.String("artist", d.Resolved.Artist.Name),
		logging.String("title", d.Resolved.Record.Title),
		logging.String("year", d.Resolved.Record.YearOriginal),
		logging.Bool("duplicate", d.DuplicateProbe != nil && d.DuplicateProbe.Exists))
	return nil
}

// resolveDraft runs the external calls and merge steps, mutating the draft
// in place. It does not persist anything.
func (o *Orchestrator) resolveDraft(ctx context.Context, d *draft.Draft) error {
	candidates, err := o.searcher.Search(ctx, d.ArtistCanonical, d.RecordCanonical)
	if err != nil {
		return fmt.Errorf("catalog search: %w", err)
	}
	d.Catalog = &discogs.SearchOutcome{Candidates: candidates, Chosen: -1}

	enrichment, err := o.enricher.Enrich(ctx, enrich.Input{
		RawArtist:       d.Input.RawArtist,
		RawTitle:        d.Input.RawTitle,
		ArtistCanonical: d.ArtistCanonical,
		RecordCanonical: d.RecordCanonical,
	}, candidates)
	if err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}
	d.Enrichment = enrichment

	now := o.now()
	resolved, chosen := resolve.BuildResolved(d.Input.RawArtist, d.Input.RawTitle, candidates, enrichment, now)
	d.Catalog.Chosen = chosen

	if violations := resolve.Validate(resolved, now); len(violations) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(violations, ", "))
	}

	exists, err := o.catalog.ExistsDuplicate(ctx, d.OwnerID,
		resolved.Artist.NameCanonical, resolved.Record.TitleCanonical, resolved.Record.YearOriginal)
	if err != nil {
		return fmt.Errorf("duplicate probe: %w", err)
	}

	d.Resolved = resolved
	d.DuplicateProbe = &draft.DuplicateProbe{
		OwnerID:         d.OwnerID,
		ArtistCanonical: resolved.Artist.NameCanonical,
		RecordCanonical: resolved.Record.TitleCanonical,
		Year:            resolved.Record.YearOriginal,
		Exists:          exists,
	}
	return nil
}

// PurgeExpired removes expired and terminal drafts.
func (o *Orchestrator) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := o.drafts.PurgeExpired(ctx, o.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		o.logger.Info("purged drafts", logging.Int64("removed", removed))
	}
	return removed, nil
}
