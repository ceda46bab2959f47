// Package blobstore provides the bolt-backed binary store used as the blob
// fallback when no directory is configured.
package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

var filesBucket = []byte("files")

// DB stores blobs in a single bolt bucket keyed by "subdir/name".
type DB struct {
	db *bolt.DB
}

// Open opens (or creates) the blob database at path.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(filesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blobstore: create bucket: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Put stores data under key, replacing any previous value.
func (s *DB) Put(_ context.Context, key string, data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(filesBucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("blobstore: put %s: %w", key, err)
	}
	return nil
}

// Get returns a copy of the blob stored under key, or found=false.
func (s *DB) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(filesBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		// bolt values are only valid inside the transaction.
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("blobstore: get %s: %w", key, err)
	}
	return out, found, nil
}

// Has reports whether key exists.
func (s *DB) Has(_ context.Context, key string) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(filesBucket).Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("blobstore: has %s: %w", key, err)
	}
	return found, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *DB) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(filesBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("blobstore: delete %s: %w", key, err)
	}
	return nil
}
