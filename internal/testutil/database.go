package testutil

import (
	"testing"

	"nbm/internal/database"
)

// NewTestStore creates an in-memory, migrated registry store with
// sequential row IDs. It is closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:", NewStubIDGenerator())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
