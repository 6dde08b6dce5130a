package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vault/internal/config"
	"vault/internal/draft"
	"vault/internal/logging"
)

const jobBufferSize = 64

// Manager runs the background side of the pipeline: it owns the worker that
// processes dispatched drafts, sweeps stalled PENDING drafts back into the
// queue, purges expired drafts, and holds the daemon lock so only one
// instance works against the database.
type Manager struct {
	cfg          *config.Config
	orchestrator *Orchestrator
	drafts       *draft.Store
	logger       *slog.Logger

	jobs     chan int64
	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ManagerOption customizes the manager.
type ManagerOption func(*Manager)

// WithManagerLogger attaches a logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager constructs the background manager. The returned manager is also
// the Dispatcher the orchestrator should use.
func NewManager(cfg *config.Config, orchestrator *Orchestrator, drafts *draft.Store, opts ...ManagerOption) *Manager {
	lockPath := filepath.Join(cfg.Paths.DataDir, "vaultd.lock")
	m := &Manager{
		cfg:          cfg,
		orchestrator: orchestrator,
		drafts:       drafts,
		logger:       logging.NewNop(),
		jobs:         make(chan int64, jobBufferSize),
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch queues a draft for processing. When the buffer is full the job is
// dropped; the retry sweep picks the draft up again.
func (m *Manager) Dispatch(draftID int64) {
	select {
	case m.jobs <- draftID:
	default:
		m.logger.Warn("job buffer full, deferring to retry sweep", logging.Int64("draft_id", draftID))
	}
}

// Start acquires the daemon lock and launches the worker and sweep loops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline manager already running")
	}

	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another vault daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go m.workerLoop(runCtx)
	go m.sweepLoop(runCtx)

	m.logger.Info("pipeline manager started",
		logging.String("lock", m.lockPath),
		logging.Int("poll_interval_seconds", m.cfg.Workflow.PollInterval),
		logging.Int("purge_interval_seconds", m.cfg.Workflow.PurgeInterval))
	return nil
}

// Stop halts background processing and releases the daemon lock. It blocks
// until in-flight work finishes.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	m.logger.Info("pipeline manager stopped")
}

// Running reports whether the manager is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// StatusSummary is a point-in-time health snapshot.
type StatusSummary struct {
	Running      bool
	QueuedJobs   int
	DraftsByStat map[draft.Status]int
	LockFilePath string
}

// Status reports the manager state and current draft counts.
func (m *Manager) Status(ctx context.Context) (StatusSummary, error) {
	stats, err := m.drafts.Stats(ctx)
	if err != nil {
		return StatusSummary{}, err
	}
	return StatusSummary{
		Running:      m.Running(),
		QueuedJobs:   len(m.jobs),
		DraftsByStat: stats,
		LockFilePath: m.lockPath,
	}, nil
}

func (m *Manager) workerLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case draftID := <-m.jobs:
			m.runJob(ctx, draftID)
		}
	}
}

func (m *Manager) runJob(ctx context.Context, draftID int64) {
	ctx = logging.WithRunID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger).With(logging.Int64("draft_id", draftID))
	started := time.Now()
	if err := m.orchestrator.RunDraft(ctx, draftID); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("draft run errored", logging.Error(err))
		return
	}
	logger.Debug("draft run finished", logging.Duration("elapsed", time.Since(started)))
}

// sweepLoop periodically re-dispatches retryable PENDING drafts and purges
// expired ones.
func (m *Manager) sweepLoop(ctx context.Context) {
	defer m.wg.Done()

	retryTicker := time.NewTicker(time.Duration(m.cfg.Workflow.PollInterval) * time.Second)
	defer retryTicker.Stop()
	purgeTicker := time.NewTicker(time.Duration(m.cfg.Workflow.PurgeInterval) * time.Second)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-retryTicker.C:
			m.sweepRetryable(ctx)
		case <-purgeTicker.C:
			if _, err := m.orchestrator.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("purge sweep failed", logging.Error(err))
			}
		}
	}
}

func (m *Manager) sweepRetryable(ctx context.Context) {
	backoff := time.Duration(m.cfg.Draft.RetryBackoffSeconds) * time.Second
	drafts, err := m.drafts.ListRetryable(ctx, time.Now(), m.cfg.Draft.MaxAttempts, backoff)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("retry sweep failed", logging.Error(err))
		}
		return
	}
	for _, d := range drafts {
		m.Dispatch(d.ID)
	}
	if len(drafts) > 0 {
		m.logger.Debug("retry sweep dispatched drafts", logging.Int("count", len(drafts)))
	}
}
