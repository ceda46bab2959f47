// Package capability models a revocable permission to read and write one
// external directory tree.
//
// A *Dir is always handled by pointer and owned by exactly one holder at a
// time. Its only durable form is a Ref, from which a later process may try to
// reacquire the same directory; a reacquired Dir must pass Probe before it is
// trusted.
package capability

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecordsDir is the well-known child directory every bound root carries.
const RecordsDir = "records"

// ErrRevoked is returned when a revoked capability is used.
var ErrRevoked = errors.New("capability: revoked")

// Ref is the persistable reference to a granted directory.
type Ref struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	GrantedAt time.Time `json:"granted_at"`
}

// Dir is an opaque directory capability backed by an *os.Root.
type Dir struct {
	mu      sync.Mutex
	ref     Ref
	root    *os.Root
	revoked bool
}

// Grant creates a capability for an existing directory. This is the explicit
// user-grant action; the records directory is created so that the capability
// can be probed after a restart.
func Grant(path string) (*Dir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("capability: resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("capability: stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("capability: not a directory: %s", abs)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("capability: open %s: %w", abs, err)
	}
	if err := root.Mkdir(RecordsDir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		_ = root.Close()
		return nil, fmt.Errorf("capability: create %s: %w", RecordsDir, err)
	}
	return &Dir{
		ref: Ref{
			ID:        uuid.NewString(),
			Name:      filepath.Base(abs),
			Path:      abs,
			GrantedAt: time.Now().UTC(),
		},
		root: root,
	}, nil
}

// Reacquire rebuilds a capability from a persisted reference. The directory
// is not touched until first use.
func Reacquire(ref Ref) (*Dir, error) {
	if ref.Path == "" || !filepath.IsAbs(ref.Path) {
		return nil, fmt.Errorf("capability: invalid reference path %q", ref.Path)
	}
	if ref.Name == "" {
		ref.Name = filepath.Base(ref.Path)
	}
	return &Dir{ref: ref}, nil
}

// Ref returns the persistable reference for d.
func (d *Dir) Ref() Ref { return d.ref }

// ID returns the identifier assigned when the directory was granted.
func (d *Dir) ID() string { return d.ref.ID }

// Name returns the display name of the directory.
func (d *Dir) Name() string { return d.ref.Name }

// Path returns the absolute path of the directory.
func (d *Dir) Path() string { return d.ref.Path }

// Root returns the scoped root handle, opening it on first use.
func (d *Dir) Root() (*os.Root, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked {
		return nil, ErrRevoked
	}
	if d.root == nil {
		root, err := os.OpenRoot(d.ref.Path)
		if err != nil {
			return nil, err
		}
		d.root = root
	}
	return d.root, nil
}

// Revoke releases the capability. Later calls to Root fail with ErrRevoked.
func (d *Dir) Revoke() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked {
		return nil
	}
	d.revoked = true
	if d.root == nil {
		return nil
	}
	err := d.root.Close()
	d.root = nil
	return err
}

// Revoked reports whether Revoke has been called.
func (d *Dir) Revoked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revoked
}
