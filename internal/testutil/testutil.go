// Package testutil provides shared test helpers for setting up vaults and indexes.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/anchorlink/internal/index"
	"github.com/starford/anchorlink/internal/storage"
)

// TestDB creates a temporary SQLite index that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "anchorlink-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault holding notes (path to content) and
// returns its provider.
func TestVault(t *testing.T, notes map[string]string) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range notes {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

// IndexedVault creates a vault from notes and syncs it into a fresh index.
func IndexedVault(t *testing.T, notes map[string]string) (*storage.FS, *index.DB) {
	t.Helper()
	store := TestVault(t, notes)
	db := TestDB(t)
	if err := index.Sync(db, store, QuietLogger()); err != nil {
		t.Fatal(err)
	}
	return store, db
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
