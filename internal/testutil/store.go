package testutil

import (
	"testing"

	"github.com/zonenet/splashgate/internal/state"
)

// NewStateDB creates an in-memory state database for testing.
// The database is automatically closed when the test completes.
func NewStateDB(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStateDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
