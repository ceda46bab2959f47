package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/capability"
	"github.com/starford/folio/internal/models"
)

const tmpPrefix = ".folio-tmp-"

// FileBackend implements Backend on top of a bound directory capability.
// Handles to subdirectories are opened lazily and cached; writes create
// missing subdirectories, reads never do.
type FileBackend struct {
	dir *capability.Dir

	mu      sync.Mutex
	subdirs map[string]*os.Root
}

// NewFileBackend creates a FileBackend for dir. The backend does not own dir.
func NewFileBackend(dir *capability.Dir) *FileBackend {
	return &FileBackend{dir: dir, subdirs: make(map[string]*os.Root)}
}

// Capability returns the capability the backend operates on.
func (b *FileBackend) Capability() *capability.Dir { return b.dir }

// Kind implements Backend.
func (b *FileBackend) Kind() string { return KindFile }

// Close releases cached subdirectory handles.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for name, r := range b.subdirs {
		errs = append(errs, r.Close())
		delete(b.subdirs, name)
	}
	return errors.Join(errs...)
}

// open returns a handle to subdir, creating it first when create is set. A
// cached handle is reused only while it still refers to the directory at
// subdir; one that was removed or replaced outside the process is reopened.
func (b *FileBackend) open(subdir string, create bool) (*os.Root, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	root, err := b.dir.Root()
	if err != nil {
		return nil, err
	}
	if r, ok := b.subdirs[subdir]; ok {
		if sameDir(root, subdir, r) {
			return r, nil
		}
		_ = r.Close()
		delete(b.subdirs, subdir)
	}
	if create {
		if err := root.MkdirAll(subdir, 0o755); err != nil {
			return nil, err
		}
	}
	r, err := root.OpenRoot(subdir)
	if err != nil {
		return nil, err
	}
	b.subdirs[subdir] = r
	return r, nil
}

// sameDir reports whether cached still is the directory found at subdir.
func sameDir(root *os.Root, subdir string, cached *os.Root) bool {
	want, err := root.Stat(subdir)
	if err != nil {
		return false
	}
	got, err := cached.Stat(".")
	if err != nil {
		return false
	}
	return os.SameFile(want, got)
}

// forget drops a cached handle after a failure so the next call reopens it;
// the directory may have been replaced underneath us.
func (b *FileBackend) forget(subdir string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.subdirs[subdir]; ok {
		_ = r.Close()
		delete(b.subdirs, subdir)
	}
}

func (b *FileBackend) fail(op, subdir, filename string, err error) error {
	b.forget(subdir)
	return &apperr.FileBackendError{Op: op, Path: subdir + "/" + filename, Err: err}
}

// write replaces filename in subdir, creating the subdirectory if needed.
func (b *FileBackend) write(subdir, filename string, data []byte) error {
	sub, err := b.open(subdir, true)
	if err != nil {
		return b.fail("write", subdir, filename, err)
	}
	if op, err := writeAtomic(sub, filename, data); err != nil {
		return b.fail(op, subdir, filename, err)
	}
	return nil
}

// writeAtomic writes content: tmp file → fsync → rename. It returns the name
// of the failing step with the error.
func writeAtomic(sub *os.Root, filename string, data []byte) (string, error) {
	tmpName := tmpPrefix + uuid.NewString()
	tmp, err := sub.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "create temp", err
	}

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = sub.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "write temp", err
	}
	if err := tmp.Sync(); err != nil {
		return "fsync", err
	}
	if err := tmp.Close(); err != nil {
		return "close temp", err
	}
	if err := sub.Rename(tmpName, filename); err != nil {
		return "rename", err
	}
	success = true
	return "", nil
}

func (b *FileBackend) read(subdir, filename string) ([]byte, bool, error) {
	sub, err := b.open(subdir, false)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, b.fail("read", subdir, filename, err)
	}
	data, err := sub.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, b.fail("read", subdir, filename, err)
	}
	return data, true, nil
}

func (b *FileBackend) remove(subdir, filename string) error {
	sub, err := b.open(subdir, false)
	if err != nil {
		return b.fail("delete", subdir, filename, err)
	}
	if err := sub.Remove(filename); err != nil {
		return b.fail("delete", subdir, filename, err)
	}
	return nil
}

// SaveRecord implements Backend.
func (b *FileBackend) SaveRecord(_ context.Context, subdir, name string, data json.RawMessage) error {
	return b.write(subdir, RecordFilename(name), data)
}

// ReadRecord implements Backend.
func (b *FileBackend) ReadRecord(_ context.Context, subdir, name string) (json.RawMessage, bool, error) {
	data, found, err := b.read(subdir, RecordFilename(name))
	if err != nil || !found {
		return nil, found, err
	}
	if !json.Valid(data) {
		return nil, false, &apperr.FileBackendError{
			Op:   "read",
			Path: subdir + "/" + RecordFilename(name),
			Err:  errors.New("invalid JSON"),
		}
	}
	return json.RawMessage(data), true, nil
}

// ListRecords implements Backend. Only regular .json files directly under
// subdir are listed.
func (b *FileBackend) ListRecords(_ context.Context, subdir string) ([]string, error) {
	sub, err := b.open(subdir, false)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, b.fail("list", subdir, "", err)
	}
	entries, err := fs.ReadDir(sub.FS(), ".")
	if err != nil {
		return nil, b.fail("list", subdir, "", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, recordExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(n, recordExt))
	}
	return out, nil
}

// DeleteRecord implements Backend.
func (b *FileBackend) DeleteRecord(_ context.Context, subdir, name string) error {
	return b.remove(subdir, RecordFilename(name))
}

// SaveBlob implements Backend.
func (b *FileBackend) SaveBlob(_ context.Context, subdir, name string, data []byte) (models.Address, error) {
	if err := b.write(subdir, name, data); err != nil {
		return "", err
	}
	return models.FileAddress(subdir, name), nil
}

// ReadBlob implements Backend.
func (b *FileBackend) ReadBlob(_ context.Context, subdir, name string) ([]byte, bool, error) {
	return b.read(subdir, name)
}

// BlobAddress implements Backend.
func (b *FileBackend) BlobAddress(_ context.Context, subdir, name string) (models.Address, bool, error) {
	sub, err := b.open(subdir, false)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, b.fail("stat", subdir, name, err)
	}
	info, err := sub.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, b.fail("stat", subdir, name, err)
	}
	if !info.Mode().IsRegular() {
		return "", false, nil
	}
	return models.FileAddress(subdir, name), true, nil
}

// DeleteBlob implements Backend.
func (b *FileBackend) DeleteBlob(_ context.Context, subdir, name string) error {
	return b.remove(subdir, name)
}
