// Package engine routes record and blob operations to the storage backend
// chosen for the current configuration and directory binding.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/capability"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/settings"
	"github.com/starford/folio/internal/storage"
)

// Settings provides the current storage configuration.
type Settings interface {
	Current() settings.StorageConfig
}

// Observer receives record changes made through the engine.
type Observer func(models.RecordEvent)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers fn to be told about successful record writes and
// deletes.
func WithObserver(fn Observer) Option {
	return func(e *Engine) { e.observer = fn }
}

type binding struct {
	dir   *capability.Dir
	files *storage.FileBackend
}

// Engine is the backend-agnostic record and blob API. The backend is
// selected afresh on every call; the engine holds no lock around I/O.
type Engine struct {
	settings Settings
	policy   Policy
	logger   *slog.Logger
	observer Observer

	bound atomic.Pointer[binding]
}

// New creates an Engine. fallback serves calls while file-backed storage is
// off.
func New(cfg Settings, fallback storage.Backend, opts ...Option) *Engine {
	e := &Engine{
		settings: cfg,
		policy:   Policy{Fallback: fallback},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bind makes dir the bound directory. The previously bound capability, if
// any and different, is revoked.
func (e *Engine) Bind(dir *capability.Dir) {
	next := &binding{dir: dir, files: storage.NewFileBackend(dir)}
	prev := e.bound.Swap(next)
	e.logger.Info("engine: bound", slog.String("path", dir.Path()))
	if prev == nil {
		return
	}
	_ = prev.files.Close()
	if prev.dir != dir {
		_ = prev.dir.Revoke()
	}
}

// Unbind drops the binding and returns the capability that was bound, or nil.
// The caller owns the returned capability.
func (e *Engine) Unbind() *capability.Dir {
	prev := e.bound.Swap(nil)
	if prev == nil {
		return nil
	}
	_ = prev.files.Close()
	e.logger.Info("engine: unbound", slog.String("path", prev.dir.Path()))
	return prev.dir
}

// Binding returns the bound capability, or nil.
func (e *Engine) Binding() *capability.Dir {
	if b := e.bound.Load(); b != nil {
		return b.dir
	}
	return nil
}

// Backend returns the backend that would serve a call right now.
func (e *Engine) Backend() storage.Backend {
	var files *storage.FileBackend
	if b := e.bound.Load(); b != nil {
		files = b.files
	}
	return e.policy.Select(e.settings.Current(), files)
}

func (e *Engine) target(subdir, def, name string) (storage.Backend, string, error) {
	clean, err := storage.CleanSubdir(subdir, def)
	if err != nil {
		return nil, "", err
	}
	if err := storage.ValidateName(name); err != nil {
		return nil, "", err
	}
	return e.Backend(), clean, nil
}

func (e *Engine) notify(kind, subdir, name string, b storage.Backend) {
	if e.observer == nil {
		return
	}
	e.observer(models.RecordEvent{
		Kind:    kind,
		Subdir:  subdir,
		Name:    name,
		Source:  models.SourceEngine,
		Backend: b.Kind(),
	})
}

func (e *Engine) logFailure(op string, b storage.Backend, subdir, name string, err error) {
	var fbe *apperr.FileBackendError
	switch {
	case errors.As(err, &fbe):
		e.logger.Warn("engine: file backend failed",
			slog.String("op", op),
			slog.String("subdir", subdir),
			slog.String("name", name),
			slog.String("error", err.Error()))
	case errors.Is(err, apperr.ErrCapabilityRequired):
		e.logger.Info("engine: directory access required",
			slog.String("op", op),
			slog.String("subdir", subdir),
			slog.String("name", name))
	default:
		e.logger.Error("engine: operation failed",
			slog.String("op", op),
			slog.String("backend", b.Kind()),
			slog.String("error", err.Error()))
	}
}

// EncodeRecord serializes v the way records are stored: two-space indented
// JSON with a trailing newline.
func EncodeRecord(v any) (json.RawMessage, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("engine: encode record: %w", err)
	}
	return append(data, '\n'), nil
}

// SaveRecord stores v as the record name in subdir.
func (e *Engine) SaveRecord(ctx context.Context, subdir, name string, v any) error {
	b, subdir, err := e.target(subdir, storage.RecordsDir, name)
	if err != nil {
		return err
	}
	data, err := EncodeRecord(v)
	if err != nil {
		return err
	}
	if err := b.SaveRecord(ctx, subdir, name, data); err != nil {
		e.logFailure("save record", b, subdir, name, err)
		return err
	}
	e.logger.Debug("engine: record saved",
		slog.String("backend", b.Kind()),
		slog.String("subdir", subdir),
		slog.String("name", name))
	e.notify(models.RecordUpdated, subdir, name, b)
	return nil
}

// ReadRecord returns the record name in subdir. found is false if there is
// no such record in the selected backend.
func (e *Engine) ReadRecord(ctx context.Context, subdir, name string) (json.RawMessage, bool, error) {
	b, subdir, err := e.target(subdir, storage.RecordsDir, name)
	if err != nil {
		return nil, false, err
	}
	data, found, err := b.ReadRecord(ctx, subdir, name)
	if err != nil {
		e.logFailure("read record", b, subdir, name, err)
		return nil, false, err
	}
	return data, found, nil
}

// DecodeRecord reads the record name in subdir into v.
func (e *Engine) DecodeRecord(ctx context.Context, subdir, name string, v any) (bool, error) {
	data, found, err := e.ReadRecord(ctx, subdir, name)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("engine: decode record %s: %w", name, err)
	}
	return true, nil
}

// ListRecords returns the names of the records directly under subdir.
func (e *Engine) ListRecords(ctx context.Context, subdir string) ([]string, error) {
	clean, err := storage.CleanSubdir(subdir, storage.RecordsDir)
	if err != nil {
		return nil, err
	}
	b := e.Backend()
	names, err := b.ListRecords(ctx, clean)
	if err != nil {
		e.logFailure("list records", b, clean, "", err)
		return nil, err
	}
	return names, nil
}

// DeleteRecord removes the record name in subdir.
func (e *Engine) DeleteRecord(ctx context.Context, subdir, name string) error {
	b, subdir, err := e.target(subdir, storage.RecordsDir, name)
	if err != nil {
		return err
	}
	if err := b.DeleteRecord(ctx, subdir, name); err != nil {
		e.logFailure("delete record", b, subdir, name, err)
		return err
	}
	e.notify(models.RecordDeleted, subdir, name, b)
	return nil
}

// SaveBlob stores data as the blob name in subdir and returns its address.
func (e *Engine) SaveBlob(ctx context.Context, subdir, name string, data []byte) (models.Address, error) {
	b, subdir, err := e.target(subdir, storage.BlobsDir, name)
	if err != nil {
		return "", err
	}
	addr, err := b.SaveBlob(ctx, subdir, name, data)
	if err != nil {
		e.logFailure("save blob", b, subdir, name, err)
		return "", err
	}
	e.logger.Debug("engine: blob saved",
		slog.String("backend", b.Kind()),
		slog.String("address", string(addr)),
		slog.Int("size", len(data)))
	return addr, nil
}

// ReadBlob returns the blob name in subdir.
func (e *Engine) ReadBlob(ctx context.Context, subdir, name string) ([]byte, bool, error) {
	b, subdir, err := e.target(subdir, storage.BlobsDir, name)
	if err != nil {
		return nil, false, err
	}
	data, found, err := b.ReadBlob(ctx, subdir, name)
	if err != nil {
		e.logFailure("read blob", b, subdir, name, err)
		return nil, false, err
	}
	return data, found, nil
}

// BlobAddress returns a dereferenceable address for an existing blob.
func (e *Engine) BlobAddress(ctx context.Context, subdir, name string) (models.Address, bool, error) {
	b, subdir, err := e.target(subdir, storage.BlobsDir, name)
	if err != nil {
		return "", false, err
	}
	addr, found, err := b.BlobAddress(ctx, subdir, name)
	if err != nil {
		e.logFailure("blob address", b, subdir, name, err)
		return "", false, err
	}
	return addr, found, nil
}

// DeleteBlob removes the blob name in subdir.
func (e *Engine) DeleteBlob(ctx context.Context, subdir, name string) error {
	b, subdir, err := e.target(subdir, storage.BlobsDir, name)
	if err != nil {
		return err
	}
	if err := b.DeleteBlob(ctx, subdir, name); err != nil {
		e.logFailure("delete blob", b, subdir, name, err)
		return err
	}
	return nil
}
