// Package vault keeps a best-effort reference to the last granted directory
// capability so that a later session can try to reacquire it.
//
// Persistence is never guaranteed: Fetch returning (nil, nil) right after a
// successful Store is a legal outcome, and callers must treat it as "ask the
// user again" rather than as a failure. Whatever Fetch returns must be probed
// before it is trusted.
package vault

import (
	"context"

	"github.com/starford/folio/internal/capability"
)

// Vault stores at most one directory capability under a fixed key.
type Vault interface {
	// Store records dir as the capability to restore next time.
	Store(ctx context.Context, dir *capability.Dir) error
	// Fetch returns the stored capability, or nil if none is available.
	Fetch(ctx context.Context) (*capability.Dir, error)
	// Clear forgets the stored capability.
	Clear(ctx context.Context) error
}

// Verify implementations satisfy Vault at compile time.
var (
	_ Vault = (*Bolt)(nil)
	_ Vault = (*Session)(nil)
)
