package config

const (
	defaultDataDir   = "~/.local/share/vault"
	defaultCoversDir = "~/.local/share/vault/covers"
	defaultLogDir    = "~/.local/share/vault/logs"

	defaultDiscogsBaseURL   = "https://api.discogs.com"
	defaultDiscogsUserAgent = "Vault/dev"
	defaultDiscogsPerPage   = 25

	defaultEnrichmentBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultEnrichmentModel          = "gpt-4o-mini"
	defaultEnrichmentTimeoutSeconds = 30

	defaultDraftTTLHours            = 24
	defaultDraftMaxAttempts         = 5
	defaultDraftRetryBackoffSeconds = 300

	defaultWorkflowPollInterval  = 15
	defaultWorkflowPurgeInterval = 3600

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			CoversDir: defaultCoversDir,
			LogDir:    defaultLogDir,
		},
		Discogs: Discogs{
			BaseURL:   defaultDiscogsBaseURL,
			UserAgent: defaultDiscogsUserAgent,
			PerPage:   defaultDiscogsPerPage,
		},
		Enrichment: Enrichment{
			BaseURL:        defaultEnrichmentBaseURL,
			Model:          defaultEnrichmentModel,
			TimeoutSeconds: defaultEnrichmentTimeoutSeconds,
		},
		Draft: Draft{
			TTLHours:            defaultDraftTTLHours,
			MaxAttempts:         defaultDraftMaxAttempts,
			RetryBackoffSeconds: defaultDraftRetryBackoffSeconds,
		},
		Workflow: Workflow{
			PollInterval:  defaultWorkflowPollInterval,
			PurgeInterval: defaultWorkflowPurgeInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
