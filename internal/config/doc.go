// Package config loads, normalizes, and validates the TOML configuration.
//
// Configuration sections by subsystem:
//   - Paths: data, covers, and log directories
//   - Discogs: catalog search API credentials and tuning
//   - Enrichment: LLM endpoint for metadata enrichment
//   - Draft: draft TTL, retry limits, and backoff
//   - Workflow: daemon polling and purge intervals
//   - Logging: log format and level
//
// Load resolves the config path (explicit flag, ~/.config/vault/config.toml,
// then ./vault.toml), applies defaults for missing values, expands home
// directories, and validates the result. A missing enrichment API key is not
// an error; the enrichment client falls back deterministically without one.
package config
