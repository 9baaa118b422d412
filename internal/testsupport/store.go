package testsupport

import (
	"testing"

	"drq/internal/config"
	"drq/internal/store"
)

// MustOpenStore opens the SQLite database for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.DB {
	t.Helper()

	db, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
