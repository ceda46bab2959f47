package recordservice

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/engine"
	"github.com/starford/folio/internal/restore"
	"github.com/starford/folio/internal/settings"
	"github.com/starford/folio/internal/testutil"
	"github.com/starford/folio/internal/vault"
)

func newService(t *testing.T, p *settings.Patch) *Service {
	t.Helper()
	cfg := testutil.Settings(t, p)
	e := engine.New(cfg, testutil.Fallback(t), engine.WithLogger(testutil.Logger()))
	proto := restore.New(cfg, vault.NewSession(), e, testutil.Logger(), nil)
	return NewService(e, cfg, proto)
}

func TestStatusDefaults(t *testing.T) {
	svc := newService(t, nil)
	st := svc.Status()
	if st.UseLocalStorage || st.Bound || st.Backend != "fallback" || st.Restoration != "idle" {
		t.Errorf("status = %+v", st)
	}
}

func TestSelectDirectoryBinds(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	path := t.TempDir()

	st, err := svc.SelectDirectory(ctx, path)
	if err != nil {
		t.Fatalf("SelectDirectory: %v", err)
	}
	if !st.Bound || st.BoundPath != path || st.Backend != "file" || st.Restoration != "bound" {
		t.Errorf("status = %+v", st)
	}
	if st.BasePath == nil || *st.BasePath != filepath.Base(path) {
		t.Errorf("base path = %v", st.BasePath)
	}

	if _, err := svc.SelectDirectory(ctx, filepath.Join(path, "missing")); err == nil {
		t.Error("selecting a missing directory should fail")
	}
	if svc.Status().BoundPath != path {
		t.Error("failed selection must keep the current binding")
	}
}

func TestPutRecordIfMatch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	first, err := svc.PutRecord(ctx, "", "n1", json.RawMessage(`{"v":1}`), "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Subdir != "records" || first.Checksum == "" {
		t.Errorf("detail = %+v", first)
	}

	if _, err := svc.PutRecord(ctx, "", "n1", json.RawMessage(`{"v":2}`), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale If-Match = %v, want conflict", err)
	}
	second, err := svc.PutRecord(ctx, "", "n1", json.RawMessage(`{"v":2}`), first.Checksum)
	if err != nil {
		t.Fatalf("matching If-Match: %v", err)
	}
	if second.Checksum == first.Checksum {
		t.Error("checksum should change with content")
	}

	if _, err := svc.PutRecord(ctx, "", "absent", json.RawMessage(`{}`), "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("If-Match on missing record = %v, want not found", err)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	svc := newService(t, nil)
	if _, err := svc.GetRecord(context.Background(), "", "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetRecord = %v", err)
	}
}

func TestDeleteMissingFileIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	if _, err := svc.SelectDirectory(ctx, t.TempDir()); err != nil {
		t.Fatal(err)
	}

	err := svc.DeleteRecord(ctx, "", "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DeleteRecord = %v, want not found", err)
	}
	var fbe *apperr.FileBackendError
	if !errors.As(err, &fbe) {
		t.Errorf("file backend error lost: %v", err)
	}
}

func TestBlobs(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	d, err := svc.PutBlob(ctx, "", "a.bin", []byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Size != 3 || d.Subdir != "blobs" || d.Address != "blobstore://blobs/a.bin" {
		t.Errorf("detail = %+v", d)
	}
	if addr, err := svc.BlobAddress(ctx, "", "a.bin"); err != nil || addr != d.Address {
		t.Errorf("BlobAddress = %q, %v", addr, err)
	}
	if err := svc.DeleteBlob(ctx, "", "a.bin"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetBlob(ctx, "", "a.bin"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetBlob = %v", err)
	}
}
