package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/tolerance-rules/internal/store"
)

// NewTestStore creates a file-backed SQLiteStore in a temporary directory
// with all migrations applied. A file is used rather than ":memory:" so
// concurrent tests exercise real connection pooling and locking.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "tolerance.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
