package testsupport

import (
	"path/filepath"
	"testing"

	"vault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Discogs.Token = "test-token"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.CoversDir = filepath.Join(base, "covers")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithEnrichmentKey sets the enrichment API key on the test config.
func WithEnrichmentKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Enrichment.APIKey = key
	}
}
