// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"provisionr/pkg/db"
)

// Open returns a migrated store backed by a file in t.TempDir. The store is
// closed when the test finishes.
func Open(t testing.TB) *db.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "provisionr.db")
	store, err := db.Open(context.Background(), db.Config{
		Driver: db.DriverSQLite,
		DSN:    path,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
