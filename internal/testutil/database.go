package testutil

import (
	"database/sql"
	"testing"

	"github.com/sunchandi/sunchandi-backend/internal/database"
)

// SetupTestDB creates an in-memory SQLite cache store for testing with the
// real embedded migrations applied, so the test schema never drifts from
// production. The database is cleaned up when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
