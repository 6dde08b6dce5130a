package main

import (
	"database/sql"
	"strings"
	"sync"

	"vault/internal/catalog"
	"vault/internal/config"
	"vault/internal/database"
	"vault/internal/discogs"
	"vault/internal/draft"
	"vault/internal/enrich"
	"vault/internal/pipeline"
)

type commandContext struct {
	configFlag *string
	ownerFlag  *int64

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, ownerFlag *int64) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		ownerFlag:  ownerFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ownerID() int64 {
	if c.ownerFlag == nil {
		return 1
	}
	return *c.ownerFlag
}

// runtime bundles the stores and pipeline pieces a command needs. The CLI
// works against the database directly; drafts it starts are resolved inline
// rather than dispatched to the daemon.
type runtime struct {
	cfg          *config.Config
	db           *sql.DB
	drafts       *draft.Store
	catalogStore *catalog.Store
	orchestrator *pipeline.Orchestrator
	finalizer    *catalog.Finalizer
}

// withRuntime opens the database, runs fn, and closes everything again.
func (c *commandContext) withRuntime(fn func(*runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := discogs.New(cfg.Discogs)
	if err != nil {
		return err
	}
	enricher := enrich.NewService(cfg.Enrichment)

	drafts := draft.NewStore(db)
	catalogStore := catalog.NewStore(db)
	covers := catalog.NewCoverRepository(cfg.Paths.CoversDir, nil)

	rt := &runtime{
		cfg:          cfg,
		db:           db,
		drafts:       drafts,
		catalogStore: catalogStore,
		orchestrator: pipeline.NewOrchestrator(cfg, drafts, catalogStore, searcher, enricher),
		finalizer:    catalog.NewFinalizer(db, drafts, covers),
	}
	return fn(rt)
}
