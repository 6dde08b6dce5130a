// Package logging constructs the application's slog loggers and provides
// standardized structured attributes.
//
// Loggers are built from config (format console or json, level, log
// directory). Context helpers carry component, draft, and pipeline run
// identifiers so every log line emitted while resolving a draft can be
// correlated without threading fields by hand.
//
// External provider traffic (catalog search, enrichment requests and
// responses) is logged through these loggers for audit; logging failures
// never interrupt the pipeline.
package logging
