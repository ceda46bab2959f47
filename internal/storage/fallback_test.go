package storage_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/folio/internal/blobstore"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/textstore"
)

func tempFallback(t *testing.T) *storage.Fallback {
	t.Helper()
	dir := t.TempDir()
	text, err := textstore.Open(filepath.Join(dir, "text.db"))
	if err != nil {
		t.Fatalf("textstore.Open: %v", err)
	}
	t.Cleanup(func() { text.Close() })
	blobs, err := blobstore.Open(filepath.Join(dir, "blobs.db"))
	if err != nil {
		t.Fatalf("blobstore.Open: %v", err)
	}
	t.Cleanup(func() { blobs.Close() })
	return storage.NewFallback(text, blobs)
}

func TestFallbackRecords(t *testing.T) {
	ctx := context.Background()
	f := tempFallback(t)

	if _, found, err := f.ReadRecord(ctx, storage.RecordsDir, "n1"); err != nil || found {
		t.Fatalf("empty read = %v, %v", found, err)
	}

	_ = f.SaveRecord(ctx, storage.RecordsDir, "n1", json.RawMessage(`{"a":1}`))
	_ = f.SaveRecord(ctx, storage.RecordsDir, "n2", json.RawMessage(`{"a":2}`))
	_ = f.SaveRecord(ctx, "records/general-notes", "n3", json.RawMessage(`{"a":3}`))

	got, found, err := f.ReadRecord(ctx, storage.RecordsDir, "n1")
	if err != nil || !found || string(got) != `{"a":1}` {
		t.Errorf("ReadRecord = %s, %v, %v", got, found, err)
	}

	names, err := f.ListRecords(ctx, storage.RecordsDir)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if diff := cmp.Diff([]string{"n1", "n2"}, names); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	nested, _ := f.ListRecords(ctx, "records/general-notes")
	if diff := cmp.Diff([]string{"n3"}, nested); diff != "" {
		t.Errorf("nested list mismatch (-want +got):\n%s", diff)
	}

	if err := f.DeleteRecord(ctx, storage.RecordsDir, "n1"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if err := f.DeleteRecord(ctx, storage.RecordsDir, "n1"); err != nil {
		t.Errorf("deleting a missing record = %v", err)
	}
	if _, found, _ := f.ReadRecord(ctx, storage.RecordsDir, "n1"); found {
		t.Error("record should be gone")
	}
}

func TestFallbackSubdirsAreSeparate(t *testing.T) {
	ctx := context.Background()
	f := tempFallback(t)
	_ = f.SaveRecord(ctx, "records/a", "same", json.RawMessage(`"a"`))
	_ = f.SaveRecord(ctx, "records/b", "same", json.RawMessage(`"b"`))

	got, _, _ := f.ReadRecord(ctx, "records/a", "same")
	if string(got) != `"a"` {
		t.Errorf("records/a/same = %s", got)
	}
}

func TestFallbackBlobs(t *testing.T) {
	ctx := context.Background()
	f := tempFallback(t)

	addr, err := f.SaveBlob(ctx, storage.BlobsDir, "img.png", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("SaveBlob: %v", err)
	}
	if addr != models.Address("blobstore://blobs/img.png") || !addr.InBlobStore() {
		t.Errorf("address = %q", addr)
	}

	got, found, err := f.ReadBlob(ctx, storage.BlobsDir, "img.png")
	if err != nil || !found || string(got) != "\x01\x02\x03" {
		t.Errorf("ReadBlob = %v, %v, %v", got, found, err)
	}
	if a, found, _ := f.BlobAddress(ctx, storage.BlobsDir, "img.png"); !found || a != addr {
		t.Errorf("BlobAddress = %q, %v", a, found)
	}
	if _, found, _ := f.BlobAddress(ctx, storage.BlobsDir, "other.png"); found {
		t.Error("missing blob should not have an address")
	}

	_ = f.DeleteBlob(ctx, storage.BlobsDir, "img.png")
	if _, found, _ := f.ReadBlob(ctx, storage.BlobsDir, "img.png"); found {
		t.Error("blob should be gone")
	}
}
