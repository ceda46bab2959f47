package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/folio/internal/models"
)

// TextStore is the flat key/value store holding fallback records.
type TextStore interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// BlobStore is the binary store holding fallback blobs.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Fallback implements Backend over the local databases: records go to the
// TextStore, blobs to the BlobStore. Keys are "subdir/filename".
type Fallback struct {
	text  TextStore
	blobs BlobStore
}

// NewFallback creates a Fallback backend.
func NewFallback(text TextStore, blobs BlobStore) *Fallback {
	return &Fallback{text: text, blobs: blobs}
}

// Kind implements Backend.
func (f *Fallback) Kind() string { return KindFallback }

func key(subdir, filename string) string {
	return subdir + "/" + filename
}

// SaveRecord implements Backend.
func (f *Fallback) SaveRecord(ctx context.Context, subdir, name string, data json.RawMessage) error {
	if err := f.text.Put(ctx, key(subdir, RecordFilename(name)), string(data)); err != nil {
		return fmt.Errorf("storage: fallback save record: %w", err)
	}
	return nil
}

// ReadRecord implements Backend.
func (f *Fallback) ReadRecord(ctx context.Context, subdir, name string) (json.RawMessage, bool, error) {
	v, found, err := f.text.Get(ctx, key(subdir, RecordFilename(name)))
	if err != nil {
		return nil, false, fmt.Errorf("storage: fallback read record: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return json.RawMessage(v), true, nil
}

// ListRecords implements Backend. Only records stored directly under subdir
// are returned, mirroring a directory listing.
func (f *Fallback) ListRecords(ctx context.Context, subdir string) ([]string, error) {
	prefix := subdir + "/"
	keys, err := f.text.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("storage: fallback list records: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, recordExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(rest, recordExt))
	}
	return out, nil
}

// DeleteRecord implements Backend.
func (f *Fallback) DeleteRecord(ctx context.Context, subdir, name string) error {
	if err := f.text.Delete(ctx, key(subdir, RecordFilename(name))); err != nil {
		return fmt.Errorf("storage: fallback delete record: %w", err)
	}
	return nil
}

// SaveBlob implements Backend.
func (f *Fallback) SaveBlob(ctx context.Context, subdir, name string, data []byte) (models.Address, error) {
	if err := f.blobs.Put(ctx, key(subdir, name), data); err != nil {
		return "", fmt.Errorf("storage: fallback save blob: %w", err)
	}
	return models.BlobStoreAddress(subdir, name), nil
}

// ReadBlob implements Backend.
func (f *Fallback) ReadBlob(ctx context.Context, subdir, name string) ([]byte, bool, error) {
	data, found, err := f.blobs.Get(ctx, key(subdir, name))
	if err != nil {
		return nil, false, fmt.Errorf("storage: fallback read blob: %w", err)
	}
	return data, found, nil
}

// BlobAddress implements Backend.
func (f *Fallback) BlobAddress(ctx context.Context, subdir, name string) (models.Address, bool, error) {
	ok, err := f.blobs.Has(ctx, key(subdir, name))
	if err != nil {
		return "", false, fmt.Errorf("storage: fallback blob address: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return models.BlobStoreAddress(subdir, name), true, nil
}

// DeleteBlob implements Backend.
func (f *Fallback) DeleteBlob(ctx context.Context, subdir, name string) error {
	if err := f.blobs.Delete(ctx, key(subdir, name)); err != nil {
		return fmt.Errorf("storage: fallback delete blob: %w", err)
	}
	return nil
}

// Verify backends satisfy Backend at compile time.
var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = (*Fallback)(nil)
)
