// Package recordservice is the consumer-facing layer over the storage engine
// shared by the HTTP API, the MCP server and the CLI.
package recordservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/capability"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/engine"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/restore"
	"github.com/starford/folio/internal/settings"
	"github.com/starford/folio/internal/storage"
)

// RecordDetail is the full representation of a record.
type RecordDetail struct {
	Subdir   string          `json:"subdir"`
	Name     string          `json:"name"`
	Data     json.RawMessage `json:"data"`
	Checksum string          `json:"checksum"`
}

// BlobDetail describes a stored blob.
type BlobDetail struct {
	Subdir  string         `json:"subdir"`
	Name    string         `json:"name"`
	Size    int            `json:"size"`
	Address models.Address `json:"address"`
}

// Service coordinates the engine, the storage settings and the restoration
// protocol.
type Service struct {
	engine   *engine.Engine
	settings *settings.Store
	restore  *restore.Protocol
}

// NewService creates a new record service.
func NewService(e *engine.Engine, s *settings.Store, p *restore.Protocol) *Service {
	return &Service{engine: e, settings: s, restore: p}
}

// Status reports configuration, binding and restoration state.
func (s *Service) Status() models.Status {
	cfg := s.settings.Current()
	st := models.Status{
		UseLocalStorage:  cfg.UseLocalStorage,
		BasePath:         cfg.BasePath,
		LastSelectedPath: cfg.LastSelectedPath,
		Restoration:      s.restore.State().String(),
		Backend:          s.engine.Backend().Kind(),
	}
	if dir := s.engine.Binding(); dir != nil {
		st.Bound = true
		st.BoundPath = dir.Path()
	}
	return st
}

// Config returns the storage settings.
func (s *Service) Config() settings.StorageConfig {
	return s.settings.Current()
}

// UpdateConfig applies p to the storage settings.
func (s *Service) UpdateConfig(_ context.Context, p settings.Patch) (settings.StorageConfig, error) {
	if err := s.settings.Save(p); err != nil {
		return settings.StorageConfig{}, err
	}
	return s.settings.Current(), nil
}

// SelectDirectory grants access to path and binds it, replacing any current
// binding.
func (s *Service) SelectDirectory(ctx context.Context, path string) (models.Status, error) {
	dir, err := capability.Grant(path)
	if err != nil {
		return models.Status{}, fmt.Errorf("%w: %w", apperr.ErrInvalidDirectory, err)
	}
	if err := s.restore.ForceRebind(ctx, dir); err != nil {
		_ = dir.Revoke()
		return models.Status{}, err
	}
	return s.Status(), nil
}

// Restore re-runs restoration from the vault.
func (s *Service) Restore(ctx context.Context) models.Status {
	s.restore.Restore(ctx, true)
	return s.Status()
}

// Verify re-probes the bound directory.
func (s *Service) Verify(ctx context.Context) models.Status {
	s.restore.Verify(ctx)
	return s.Status()
}

// ListRecords returns the names of the records directly under subdir.
func (s *Service) ListRecords(ctx context.Context, subdir string) ([]string, error) {
	return s.engine.ListRecords(ctx, subdir)
}

// GetRecord reads a record.
func (s *Service) GetRecord(ctx context.Context, subdir, name string) (*RecordDetail, error) {
	data, found, err := s.engine.ReadRecord(ctx, subdir, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.ErrNotFound
	}
	return &RecordDetail{
		Subdir:   cleanSubdir(subdir, storage.RecordsDir),
		Name:     name,
		Data:     data,
		Checksum: checksum.Sum(data),
	}, nil
}

// PutRecord saves a record. A non-empty ifMatch must equal the checksum of the
// stored record.
func (s *Service) PutRecord(ctx context.Context, subdir, name string, data json.RawMessage, ifMatch string) (*RecordDetail, error) {
	if ifMatch != "" {
		existing, err := s.GetRecord(ctx, subdir, name)
		if err != nil {
			return nil, err
		}
		if existing.Checksum != ifMatch {
			return nil, apperr.ErrConflict
		}
	}
	if err := s.engine.SaveRecord(ctx, subdir, name, data); err != nil {
		return nil, err
	}
	return s.GetRecord(ctx, subdir, name)
}

// DeleteRecord removes a record.
func (s *Service) DeleteRecord(ctx context.Context, subdir, name string) error {
	return notFound(s.engine.DeleteRecord(ctx, subdir, name))
}

// PutBlob saves a blob.
func (s *Service) PutBlob(ctx context.Context, subdir, name string, data []byte) (*BlobDetail, error) {
	addr, err := s.engine.SaveBlob(ctx, subdir, name, data)
	if err != nil {
		return nil, err
	}
	return &BlobDetail{
		Subdir:  cleanSubdir(subdir, storage.BlobsDir),
		Name:    name,
		Size:    len(data),
		Address: addr,
	}, nil
}

// GetBlob reads a blob.
func (s *Service) GetBlob(ctx context.Context, subdir, name string) ([]byte, error) {
	data, found, err := s.engine.ReadBlob(ctx, subdir, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.ErrNotFound
	}
	return data, nil
}

// BlobAddress returns the address of an existing blob.
func (s *Service) BlobAddress(ctx context.Context, subdir, name string) (models.Address, error) {
	addr, found, err := s.engine.BlobAddress(ctx, subdir, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperr.ErrNotFound
	}
	return addr, nil
}

// DeleteBlob removes a blob.
func (s *Service) DeleteBlob(ctx context.Context, subdir, name string) error {
	return notFound(s.engine.DeleteBlob(ctx, subdir, name))
}

// cleanSubdir normalises a subdirectory the engine has already accepted.
func cleanSubdir(subdir, def string) string {
	clean, err := storage.CleanSubdir(subdir, def)
	if err != nil {
		return subdir
	}
	return clean
}

// notFound adds apperr.ErrNotFound to errors about missing files.
func notFound(err error) error {
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return errors.Join(apperr.ErrNotFound, err)
	}
	return err
}
