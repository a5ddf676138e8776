// Package testutil provides shared helpers for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/mwantia/caltrack/pkg/db/store"
)

// NewTestStore creates a migrated in-memory SQLite store that is torn down
// with the test.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	ctx := context.Background()
	if err := st.Connect(ctx); err != nil {
		t.Fatalf("failed to connect test store: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}

	t.Cleanup(func() {
		st.Close()
	})

	return st
}
