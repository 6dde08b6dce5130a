package testsupport

import (
	"database/sql"
	"testing"

	"vault/internal/config"
	"vault/internal/database"
)

// MustOpenDB opens the vault database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *sql.DB {
	t.Helper()

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
