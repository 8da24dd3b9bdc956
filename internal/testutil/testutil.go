// Package testutil provides shared test helpers for setting up notebook
// roots, journals and the persistence service.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/nbsave/internal/gitstore"
	"github.com/starford/nbsave/internal/journal"
	"github.com/starford/nbsave/internal/nbservice"
	"github.com/starford/nbsave/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestJournal creates a temporary SQLite journal that is automatically closed.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService creates a persistence service over a temporary git repository
// and journal.
func TestService(t *testing.T) *nbservice.Service {
	t.Helper()
	store, err := gitstore.Open(filepath.Join(t.TempDir(), "repo"))
	if err != nil {
		t.Fatal(err)
	}
	return nbservice.NewService(store, TestJournal(t), Logger())
}

// TestRoot creates a temporary notebook root directory with a storage.Provider.
func TestRoot(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Eventually polls fn every 10ms until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error(msg)
}
