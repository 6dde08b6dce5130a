package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldDraftID is the standardized structured logging key for draft identifiers.
	FieldDraftID = "draft_id"
	// FieldOwnerID is the standardized structured logging key for owner identifiers.
	FieldOwnerID = "owner_id"
	// FieldRunID is the standardized structured logging key for pipeline run correlation identifiers.
	FieldRunID = "run_id"
	// FieldEventType tags lifecycle events (pipeline_start, pipeline_complete, ...).
	FieldEventType = "event_type"
)

type contextKey string

const (
	componentKey contextKey = "component"
	draftIDKey   contextKey = "draft_id"
	runIDKey     contextKey = "run_id"
)

// WithComponent stores a component name on the context.
func WithComponent(ctx context.Context, component string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, componentKey, component)
}

// WithDraftID stores a draft identifier on the context.
func WithDraftID(ctx context.Context, id int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, draftIDKey, id)
}

// WithRunID stores a pipeline run correlation id on the context.
func WithRunID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, slog.String(FieldComponent, component))
	}
	if id, ok := ctx.Value(draftIDKey).(int64); ok {
		fields = append(fields, slog.Int64(FieldDraftID, id))
	}
	if run, ok := ctx.Value(runIDKey).(string); ok && run != "" {
		fields = append(fields, slog.String(FieldRunID, run))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
