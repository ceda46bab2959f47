package engine

import (
	"github.com/starford/folio/internal/settings"
	"github.com/starford/folio/internal/storage"
)

// Policy selects the backend that serves a call.
type Policy struct {
	// Fallback serves every call while file-backed storage is off.
	Fallback storage.Backend
}

// Select returns the backend for cfg and the current binding. files is nil
// while unbound.
//
//   - file-backed storage off: the fallback stores, whatever the binding;
//   - file-backed storage on and bound: the bound directory;
//   - file-backed storage on and unbound: storage.Unbound, never the fallback.
func (p Policy) Select(cfg settings.StorageConfig, files *storage.FileBackend) storage.Backend {
	switch {
	case !cfg.UseLocalStorage:
		return p.Fallback
	case files != nil:
		return files
	default:
		return storage.Unbound{}
	}
}
