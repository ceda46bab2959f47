// Package models defines the domain types shared across folio.
package models

import "strings"

// Address is a dereferenceable location of a stored blob.
//
// Blobs in a bound directory are addressed relative to that directory
// ("./blobs/photo.png"); blobs in the fallback store use the blobstore scheme
// ("blobstore://blobs/photo.png").
type Address string

const (
	FileAddressPrefix      = "./"
	BlobStoreAddressPrefix = "blobstore://"
)

// FileAddress returns the address of a blob stored under a bound directory.
func FileAddress(subdir, name string) Address {
	return Address(FileAddressPrefix + subdir + "/" + name)
}

// BlobStoreAddress returns the address of a blob held by the fallback store.
func BlobStoreAddress(subdir, name string) Address {
	return Address(BlobStoreAddressPrefix + subdir + "/" + name)
}

// InBlobStore reports whether a points into the fallback blob store.
func (a Address) InBlobStore() bool {
	return strings.HasPrefix(string(a), BlobStoreAddressPrefix)
}

// Record event kinds.
const (
	RecordCreated = "created"
	RecordUpdated = "updated"
	RecordDeleted = "deleted"
)

// Record event sources.
const (
	SourceEngine = "engine" // a write through the storage engine
	SourceDisk   = "disk"   // a change made to the bound directory by another program
)

// RecordEvent describes a change to a stored record.
type RecordEvent struct {
	Kind    string `json:"kind"`
	Subdir  string `json:"subdir"`
	Name    string `json:"name"`
	Source  string `json:"source"`
	Backend string `json:"backend,omitempty"`
}

// Status is a snapshot of configuration and binding state.
type Status struct {
	UseLocalStorage  bool    `json:"use_local_storage"`
	BasePath         *string `json:"base_path"`
	LastSelectedPath *string `json:"last_selected_path"`
	Bound            bool    `json:"bound"`
	BoundPath        string  `json:"bound_path,omitempty"`
	Restoration      string  `json:"restoration"`
	Backend          string  `json:"backend"`
}
