package catalog

import (
	"context"
	"database/sql"
	"testing"

	"vault/internal/testsupport"
	"vault/internal/vinyl"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return testsupport.MustOpenDB(t, cfg)
}

func seedEdition(t *testing.T, store *Store, db *sql.DB, ownerID int64, artistName, title, year string) *Record {
	t.Helper()
	ctx := context.Background()
	artist, err := store.findOrCreateArtist(ctx, db, artistName, "FR", nil)
	if err != nil {
		t.Fatalf("findOrCreateArtist: %v", err)
	}
	record, _, err := store.findOrCreateRecord(ctx, db, artist.ID, title, year, vinyl.Format33, recordFields{})
	if err != nil {
		t.Fatalf("findOrCreateRecord: %v", err)
	}
	if _, err := store.insertEdition(ctx, db, ownerID, record.ID, nil, nil); err != nil {
		t.Fatalf("insertEdition: %v", err)
	}
	return record
}

func TestExistsDuplicate(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedEdition(t, store, db, 1, "Daft Punk", "Discovery", "2001")

	exists, err := store.ExistsDuplicate(ctx, 1, "daft punk", "discovery", "2001")
	if err != nil {
		t.Fatalf("ExistsDuplicate failed: %v", err)
	}
	if !exists {
		t.Error("expected duplicate for matching keys")
	}

	exists, err = store.ExistsDuplicate(ctx, 1, "daft punk", "discovery", "1997")
	if err != nil {
		t.Fatalf("ExistsDuplicate failed: %v", err)
	}
	if exists {
		t.Error("different year must not match")
	}

	exists, err = store.ExistsDuplicate(ctx, 2, "daft punk", "discovery", "2001")
	if err != nil {
		t.Fatalf("ExistsDuplicate failed: %v", err)
	}
	if exists {
		t.Error("different owner must not match")
	}
}

func TestFindOrCreateArtistIdempotent(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	first, err := store.findOrCreateArtist(ctx, db, "Café Del Mar", "ES", nil)
	if err != nil {
		t.Fatalf("findOrCreateArtist: %v", err)
	}
	if first.NameCanonical != "cafe del mar" {
		t.Errorf("nameCanonical = %q", first.NameCanonical)
	}
	if first.Slug != "cafe-del-mar" {
		t.Errorf("slug = %q", first.Slug)
	}

	second, err := store.findOrCreateArtist(ctx, db, "Cafe del Mar", "ES", nil)
	if err != nil {
		t.Fatalf("second findOrCreateArtist: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same artist, got %d and %d", first.ID, second.ID)
	}

	// Same canonical name in another country is a distinct artist.
	third, err := store.findOrCreateArtist(ctx, db, "Cafe Del Mar", "FR", nil)
	if err != nil {
		t.Fatalf("third findOrCreateArtist: %v", err)
	}
	if third.ID == first.ID {
		t.Error("expected distinct artist per country")
	}
}

func TestFindOrCreateRecordIdempotent(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	artist, err := store.findOrCreateArtist(ctx, db, "Daft Punk", "FR", nil)
	if err != nil {
		t.Fatalf("findOrCreateArtist: %v", err)
	}

	first, created, err := store.findOrCreateRecord(ctx, db, artist.ID, "Discovery", "2001", vinyl.Format33, recordFields{})
	if err != nil {
		t.Fatalf("findOrCreateRecord: %v", err)
	}
	if !created {
		t.Error("expected record creation")
	}

	second, created, err := store.findOrCreateRecord(ctx, db, artist.ID, "DISCOVERY", "2001", vinyl.Format33, recordFields{})
	if err != nil {
		t.Fatalf("second findOrCreateRecord: %v", err)
	}
	if created {
		t.Error("expected existing record")
	}
	if second.ID != first.ID {
		t.Errorf("expected same record, got %d and %d", first.ID, second.ID)
	}
}

func TestListCollection(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	seedEdition(t, store, db, 1, "Daft Punk", "Discovery", "2001")
	seedEdition(t, store, db, 1, "Air", "Moon Safari", "1998")
	seedEdition(t, store, db, 2, "Nirvana", "Nevermind", "1991")

	items, err := store.ListCollection(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("ListCollection failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	count, err := store.CountCollection(ctx, 1)
	if err != nil {
		t.Fatalf("CountCollection failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d", count)
	}

	page, err := store.ListCollection(ctx, 1, 1, 1)
	if err != nil {
		t.Fatalf("paged ListCollection failed: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 item on page, got %d", len(page))
	}
}
