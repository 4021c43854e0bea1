package testutil

import (
	"testing"

	"habitsync/internal/database"
)

// NewTestLocalStore creates a new in-memory SQLite store with the schema
// applied. The store is closed when the test completes.
func NewTestLocalStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	s, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		t.Fatalf("failed to migrate local store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}
