package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultNormalizesAndValidates(t *testing.T) {
	cfg := Default()
	cfg.Discogs.Token = "test-token"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Errorf("expected absolute data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateRequiresDiscogsToken(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing discogs token")
	}
	if !strings.Contains(err.Error(), "discogs.token") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Discogs.Token = "x"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bad log format")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	_, resolved, exists, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error without token")
	}
	_ = resolved
	_ = exists
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
covers_dir = "` + dir + `/covers"
log_dir = "` + dir + `/logs"

[discogs]
token = "abc123"

[draft]
ttl_hours = 48
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Discogs.Token != "abc123" {
		t.Errorf("token = %q", cfg.Discogs.Token)
	}
	if cfg.Draft.TTLHours != 48 {
		t.Errorf("ttl_hours = %d, want 48", cfg.Draft.TTLHours)
	}
	if cfg.Draft.MaxAttempts != defaultDraftMaxAttempts {
		t.Errorf("max_attempts = %d, want default", cfg.Draft.MaxAttempts)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := CreateSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.CoversDir = filepath.Join(dir, "covers")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.CoversDir, cfg.Paths.LogDir} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected directory %s: %v", p, err)
		}
	}
}
