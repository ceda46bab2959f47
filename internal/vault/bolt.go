package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/capability"
)

var (
	handlesBucket = []byte("handles")
	handleKey     = []byte("baseDirectoryHandle")
)

// Bolt persists the capability reference in a bolt database so it survives
// restarts. The reference is reacquired lazily on Fetch.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the vault database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("vault: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(handlesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault: create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Store writes the reference of dir under the fixed key.
func (b *Bolt) Store(_ context.Context, dir *capability.Dir) error {
	data, err := json.Marshal(dir.Ref())
	if err != nil {
		return &apperr.VaultError{Op: "store", Err: err}
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(handlesBucket).Put(handleKey, data)
	})
	if err != nil {
		return &apperr.VaultError{Op: "store", Err: err}
	}
	return nil
}

// Fetch reacquires the stored capability, or returns nil if none is stored.
func (b *Bolt) Fetch(_ context.Context) (*capability.Dir, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(handlesBucket).Get(handleKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, &apperr.VaultError{Op: "fetch", Err: err}
	}
	if data == nil {
		return nil, nil
	}

	var ref capability.Ref
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, &apperr.VaultError{Op: "fetch", Err: err}
	}
	dir, err := capability.Reacquire(ref)
	if err != nil {
		return nil, &apperr.VaultError{Op: "fetch", Err: err}
	}
	return dir, nil
}

// Clear removes the stored reference.
func (b *Bolt) Clear(_ context.Context) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(handlesBucket).Delete(handleKey)
	})
	if err != nil {
		return &apperr.VaultError{Op: "clear", Err: err}
	}
	return nil
}
