// Package storage defines the backend contract shared by every storage tier
// and the two concrete backends: the directory-backed FileBackend and the
// Fallback backend over the local databases.
package storage

import (
	"context"
	"encoding/json"

	"github.com/starford/folio/internal/models"
)

// Default subdirectories for records and blobs.
const (
	RecordsDir = "records"
	BlobsDir   = "blobs"
)

// Backend kinds as reported by Kind.
const (
	KindFile     = "file"
	KindFallback = "fallback"
	KindUnbound  = "unbound"
)

// Backend is the interface for record and blob operations. Subdirectories
// and names are expected to be validated by the caller (see CleanSubdir and
// ValidateName).
type Backend interface {
	// Kind names the backend for logs and status reports.
	Kind() string

	// SaveRecord replaces the record name in subdir with data.
	SaveRecord(ctx context.Context, subdir, name string, data json.RawMessage) error
	// ReadRecord returns the record, or found=false if it does not exist.
	ReadRecord(ctx context.Context, subdir, name string) (data json.RawMessage, found bool, err error)
	// ListRecords returns the names of the records directly under subdir.
	ListRecords(ctx context.Context, subdir string) ([]string, error)
	// DeleteRecord removes the record.
	DeleteRecord(ctx context.Context, subdir, name string) error

	// SaveBlob replaces the blob and returns its address.
	SaveBlob(ctx context.Context, subdir, name string, data []byte) (models.Address, error)
	// ReadBlob returns the blob, or found=false if it does not exist.
	ReadBlob(ctx context.Context, subdir, name string) (data []byte, found bool, err error)
	// BlobAddress returns the address of an existing blob.
	BlobAddress(ctx context.Context, subdir, name string) (addr models.Address, found bool, err error)
	// DeleteBlob removes the blob.
	DeleteBlob(ctx context.Context, subdir, name string) error
}

// RecordFilename returns the file name for a record id.
func RecordFilename(name string) string {
	return name + recordExt
}

const recordExt = ".json"
