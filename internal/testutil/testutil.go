// Package testutil provides shared test helpers for setting up stores,
// settings and directory capabilities.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/blobstore"
	"github.com/starford/folio/internal/capability"
	"github.com/starford/folio/internal/settings"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/textstore"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Stores opens temporary fallback databases that are closed on cleanup.
func Stores(t *testing.T) (*textstore.DB, *blobstore.DB) {
	t.Helper()
	dir := t.TempDir()
	text, err := textstore.Open(filepath.Join(dir, "text.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { text.Close() })
	blobs, err := blobstore.Open(filepath.Join(dir, "blobs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { blobs.Close() })
	return text, blobs
}

// Fallback returns a fallback backend over temporary databases.
func Fallback(t *testing.T) *storage.Fallback {
	t.Helper()
	text, blobs := Stores(t)
	return storage.NewFallback(text, blobs)
}

// Settings returns a loaded settings store in a temporary directory. A
// non-nil patch is saved before returning.
func Settings(t *testing.T, p *settings.Patch) *settings.Store {
	t.Helper()
	s := settings.New(filepath.Join(t.TempDir(), "storage.yaml"), Logger())
	s.Load()
	if p != nil {
		if err := s.Save(*p); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

// Grant grants a capability on a fresh temporary directory and revokes it on
// cleanup.
func Grant(t *testing.T) (*capability.Dir, string) {
	t.Helper()
	path := t.TempDir()
	dir, err := capability.Grant(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dir.Revoke() })
	return dir, path
}

// FileMode returns a patch enabling file-backed storage at path.
func FileMode(path string) *settings.Patch {
	return &settings.Patch{
		UseLocalStorage:  settings.Bool(true),
		BasePath:         settings.String(filepath.Base(path)),
		LastSelectedPath: settings.String(path),
	}
}
