package capability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/folio/internal/apperr"
)

func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out = append(out, rel)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestGrantCreatesRecordsDir(t *testing.T) {
	dir := t.TempDir()
	d, err := Grant(dir)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	defer d.Revoke()

	if info, err := os.Stat(filepath.Join(dir, RecordsDir)); err != nil || !info.IsDir() {
		t.Fatalf("records dir missing: %v", err)
	}
	if d.ID() == "" {
		t.Error("expected an id")
	}
	if d.Name() != filepath.Base(dir) {
		t.Errorf("name = %q", d.Name())
	}
}

func TestGrantRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Grant(f); err == nil {
		t.Error("expected error when granting a file")
	}
	if _, err := Grant(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error when granting a missing directory")
	}
}

func TestProbeIdempotent(t *testing.T) {
	dir := t.TempDir()
	d, err := Grant(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Revoke()

	before := listTree(t, dir)
	first := Probe(d)
	second := Probe(d)
	if first != nil || second != nil {
		t.Fatalf("probe results = %v, %v", first, second)
	}
	if diff := cmp.Diff(before, listTree(t, dir)); diff != "" {
		t.Errorf("probe changed the tree (-before +after):\n%s", diff)
	}
}

func TestProbeFailsWhenDirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chosen")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	d, err := Grant(dir)
	if err != nil {
		t.Fatal(err)
	}
	ref := d.Ref()
	_ = d.Revoke()

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	again, err := Reacquire(ref)
	if err != nil {
		t.Fatalf("Reacquire: %v", err)
	}
	err = Probe(again)
	var pe *apperr.ProbeError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProbeError, got %v", err)
	}
}

func TestProbeDoesNotCreateRecordsDir(t *testing.T) {
	dir := t.TempDir()
	d, err := Reacquire(Ref{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Revoke()

	if err := Probe(d); err == nil {
		t.Fatal("expected probe failure without records dir")
	}
	if _, err := os.Stat(filepath.Join(dir, RecordsDir)); !os.IsNotExist(err) {
		t.Errorf("probe must not create %s: %v", RecordsDir, err)
	}
}

func TestRevoke(t *testing.T) {
	d, err := Grant(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Revoke(); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !d.Revoked() {
		t.Error("expected revoked")
	}
	if _, err := d.Root(); !errors.Is(err, ErrRevoked) {
		t.Errorf("Root after revoke = %v", err)
	}
	if err := Probe(d); err == nil {
		t.Error("probe of revoked capability should fail")
	}
	if err := d.Revoke(); err != nil {
		t.Errorf("second Revoke: %v", err)
	}
}

func TestReacquireRejectsRelativePath(t *testing.T) {
	if _, err := Reacquire(Ref{Path: "relative/dir"}); err == nil {
		t.Error("expected error for relative path")
	}
	if _, err := Reacquire(Ref{}); err == nil {
		t.Error("expected error for empty path")
	}
}
