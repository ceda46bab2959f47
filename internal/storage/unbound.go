package storage

import (
	"context"
	"encoding/json"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Unbound is the backend used while file-backed storage is configured but no
// directory is bound. Reads find nothing and writes fail with
// *apperr.CapabilityRequiredError; it never consults another store.
type Unbound struct{}

// Kind implements Backend.
func (Unbound) Kind() string { return KindUnbound }

func required(op string) error {
	return &apperr.CapabilityRequiredError{Op: op}
}

// SaveRecord implements Backend.
func (Unbound) SaveRecord(context.Context, string, string, json.RawMessage) error {
	return required("save record")
}

// ReadRecord implements Backend.
func (Unbound) ReadRecord(context.Context, string, string) (json.RawMessage, bool, error) {
	return nil, false, nil
}

// ListRecords implements Backend.
func (Unbound) ListRecords(context.Context, string) ([]string, error) {
	return []string{}, nil
}

// DeleteRecord implements Backend.
func (Unbound) DeleteRecord(context.Context, string, string) error {
	return required("delete record")
}

// SaveBlob implements Backend.
func (Unbound) SaveBlob(context.Context, string, string, []byte) (models.Address, error) {
	return "", required("save blob")
}

// ReadBlob implements Backend.
func (Unbound) ReadBlob(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

// BlobAddress implements Backend.
func (Unbound) BlobAddress(context.Context, string, string) (models.Address, bool, error) {
	return "", false, nil
}

// DeleteBlob implements Backend.
func (Unbound) DeleteBlob(context.Context, string, string) error {
	return required("delete blob")
}

var _ Backend = Unbound{}
