package settings

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/folio/internal/apperr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadFreshInstallDefaults(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "storage.yaml"), quietLogger())
	cfg := s.Load()
	if diff := cmp.Diff(StorageConfig{}, cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.ShouldRestore() {
		t.Error("fresh config should not request restoration")
	}
}

func TestSaveMergesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	s := New(path, quietLogger())
	s.Load()

	if err := s.Save(Patch{BasePath: String("notes")}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(Patch{UseLocalStorage: Bool(true), LastSelectedPath: String("/home/u/notes")}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := StorageConfig{
		UseLocalStorage:  true,
		BasePath:         String("notes"),
		LastSelectedPath: String("/home/u/notes"),
	}
	if diff := cmp.Diff(want, s.Current()); diff != "" {
		t.Errorf("current mismatch (-want +got):\n%s", diff)
	}

	reopened := New(path, quietLogger())
	if diff := cmp.Diff(want, reopened.Load()); diff != "" {
		t.Errorf("reloaded mismatch (-want +got):\n%s", diff)
	}
	if !reopened.Current().ShouldRestore() {
		t.Error("expected restoration to be requested")
	}
}

func TestSaveEmptyStringClearsPath(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "storage.yaml"), quietLogger())
	s.Load()
	_ = s.Save(Patch{BasePath: String("x")})
	if err := s.Save(Patch{BasePath: String("")}); err != nil {
		t.Fatal(err)
	}
	if s.Current().BasePath != nil {
		t.Errorf("base path = %v, want nil", *s.Current().BasePath)
	}
}

func TestLoadMalformedFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	if err := os.WriteFile(path, []byte("use_local_storage: [not a bool"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(path, quietLogger())
	if diff := cmp.Diff(StorageConfig{}, s.Load()); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadKeepsIntentWithoutLastPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	if err := os.WriteFile(path, []byte("use_local_storage: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := New(path, quietLogger()).Load()
	if !cfg.UseLocalStorage {
		t.Error("file-backed intent must survive a missing last path")
	}
	if cfg.ShouldRestore() {
		t.Error("restoration needs a last selected path")
	}
}

func TestSaveFailureKeepsPreviousValue(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("file"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(filepath.Join(blocker, "storage.yaml"), quietLogger())
	s.Load()

	if err := s.Save(Patch{UseLocalStorage: Bool(true), LastSelectedPath: String("/notes")}); err == nil {
		t.Fatal("expected save error when parent is a file")
	}
	if s.Current().UseLocalStorage {
		t.Error("failed save must not change the in-memory config")
	}
}

func TestSaveRejectsIntentWithoutPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	s := New(path, quietLogger())
	s.Load()

	err := s.Save(Patch{UseLocalStorage: Bool(true)})
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Fatalf("enable without path = %v, want invalid config", err)
	}
	if s.Current().UseLocalStorage {
		t.Error("rejected save must not change the in-memory config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("rejected save must not write the file")
	}

	if err := s.Save(Patch{UseLocalStorage: Bool(true), LastSelectedPath: String("/notes")}); err != nil {
		t.Fatal(err)
	}
	err = s.Save(Patch{LastSelectedPath: String("")})
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Fatalf("clear path in file mode = %v, want invalid config", err)
	}
	if got := s.Current().LastSelectedPath; got == nil || *got != "/notes" {
		t.Errorf("last path = %v, want /notes", got)
	}

	// Turning file storage off and clearing the path together is fine.
	if err := s.Save(Patch{UseLocalStorage: Bool(false), LastSelectedPath: String("")}); err != nil {
		t.Errorf("disable and clear = %v", err)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "storage.yaml"), quietLogger())
	s.Load()
	_ = s.Save(Patch{BasePath: String("a")})
	cfg := s.Current()
	*cfg.BasePath = "mutated"
	if *s.Current().BasePath != "a" {
		t.Error("Current must not expose internal state")
	}
}
