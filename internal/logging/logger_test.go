package logging

import (
	"context"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewDefaultsToConsole(t *testing.T) {
	logger, err := New(Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestContextFields(t *testing.T) {
	ctx := WithComponent(context.Background(), "discogs")
	ctx = WithDraftID(ctx, 42)
	ctx = WithRunID(ctx, "abc-123")

	fields := ContextFields(ctx)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}

	keys := map[string]bool{}
	for _, f := range fields {
		keys[f.Key] = true
	}
	for _, want := range []string{FieldComponent, FieldDraftID, FieldRunID} {
		if !keys[want] {
			t.Errorf("missing field %s", want)
		}
	}
}

func TestContextFieldsEmpty(t *testing.T) {
	if fields := ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("expected no fields, got %d", len(fields))
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected fallback logger")
	}
}
