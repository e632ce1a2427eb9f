package sqliteutils

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB returns a migrated database in a fresh file under t.TempDir.
// It is closed when the test finishes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := OpenDB(t.Context(), path)
	if err != nil {
		t.Fatalf("open sqlite test db: %v", err)
	}

	t.Cleanup(func() {
		//nolint:errcheck
		db.Close()
	})

	return db
}
