package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscogs()
	c.normalizeEnrichment()
	c.normalizeDraft()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CoversDir) == "" {
		c.Paths.CoversDir = defaultCoversDir
	}
	if c.Paths.CoversDir, err = expandPath(c.Paths.CoversDir); err != nil {
		return fmt.Errorf("paths.covers_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscogs() {
	c.Discogs.Token = strings.TrimSpace(c.Discogs.Token)
	c.Discogs.BaseURL = strings.TrimRight(strings.TrimSpace(c.Discogs.BaseURL), "/")
	if c.Discogs.BaseURL == "" {
		c.Discogs.BaseURL = defaultDiscogsBaseURL
	}
	if strings.TrimSpace(c.Discogs.UserAgent) == "" {
		c.Discogs.UserAgent = defaultDiscogsUserAgent
	}
	if c.Discogs.PerPage <= 0 {
		c.Discogs.PerPage = defaultDiscogsPerPage
	}
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.APIKey = strings.TrimSpace(c.Enrichment.APIKey)
	c.Enrichment.BaseURL = strings.TrimSpace(c.Enrichment.BaseURL)
	if c.Enrichment.BaseURL == "" {
		c.Enrichment.BaseURL = defaultEnrichmentBaseURL
	}
	if strings.TrimSpace(c.Enrichment.Model) == "" {
		c.Enrichment.Model = defaultEnrichmentModel
	}
	if c.Enrichment.TimeoutSeconds <= 0 {
		c.Enrichment.TimeoutSeconds = defaultEnrichmentTimeoutSeconds
	}
}

func (c *Config) normalizeDraft() {
	if c.Draft.TTLHours <= 0 {
		c.Draft.TTLHours = defaultDraftTTLHours
	}
	if c.Draft.MaxAttempts <= 0 {
		c.Draft.MaxAttempts = defaultDraftMaxAttempts
	}
	if c.Draft.RetryBackoffSeconds <= 0 {
		c.Draft.RetryBackoffSeconds = defaultDraftRetryBackoffSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultWorkflowPollInterval
	}
	if c.Workflow.PurgeInterval <= 0 {
		c.Workflow.PurgeInterval = defaultWorkflowPurgeInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
