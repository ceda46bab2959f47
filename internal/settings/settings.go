// Package settings holds the user's storage intent: whether records live in a
// chosen directory and which directory was chosen last.
//
// The configuration is loaded once by the composition root and changed only
// through Store.Save, which persists the full record before it becomes
// visible to readers.
package settings

import (
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	pkgconfig "github.com/starford/folio/pkg/config"
)

// StorageConfig is the durable record of where the user wants data stored.
type StorageConfig struct {
	UseLocalStorage  bool    `yaml:"use_local_storage" json:"use_local_storage"`
	BasePath         *string `yaml:"base_path" json:"base_path"`
	LastSelectedPath *string `yaml:"last_selected_path" json:"last_selected_path"`
}

// Validate validates the storage configuration.
//
// UseLocalStorage without a LastSelectedPath is deliberately accepted: it can
// only come from a hand-edited file and must keep writes failing rather than
// reset the user to the fallback stores.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BasePath, validation.NilOrNotEmpty),
		validation.Field(&c.LastSelectedPath, validation.NilOrNotEmpty),
	)
}

// validateSave applies the rule every normal change must keep: file-backed
// storage is only enabled together with a chosen directory. Load does not
// apply it.
func (c StorageConfig) validateSave() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LastSelectedPath,
			validation.When(c.UseLocalStorage,
				validation.Required.Error("is required while local storage is enabled"))),
	)
}

// ShouldRestore reports whether a directory binding should be restored.
func (c StorageConfig) ShouldRestore() bool {
	return c.UseLocalStorage && c.LastSelectedPath != nil && *c.LastSelectedPath != ""
}

func (c StorageConfig) clone() StorageConfig {
	out := c
	out.BasePath = cloneString(c.BasePath)
	out.LastSelectedPath = cloneString(c.LastSelectedPath)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Defaults returns the zero-configuration StorageConfig.
func Defaults() StorageConfig {
	return StorageConfig{}
}

// Patch is a partial StorageConfig. Nil fields are left unchanged; a pointer
// to an empty string clears an optional path.
type Patch struct {
	UseLocalStorage  *bool   `json:"use_local_storage,omitempty"`
	BasePath         *string `json:"base_path,omitempty"`
	LastSelectedPath *string `json:"last_selected_path,omitempty"`
}

func (p Patch) apply(c StorageConfig) StorageConfig {
	out := c.clone()
	if p.UseLocalStorage != nil {
		out.UseLocalStorage = *p.UseLocalStorage
	}
	if p.BasePath != nil {
		out.BasePath = optional(*p.BasePath)
	}
	if p.LastSelectedPath != nil {
		out.LastSelectedPath = optional(*p.LastSelectedPath)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// Store loads and saves the StorageConfig from a YAML file.
type Store struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	cfg StorageConfig
}

// New creates a Store backed by the file at path. Call Load before use.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger, cfg: Defaults()}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the configuration file. A missing file yields defaults; an
// unreadable or malformed one is logged and also yields defaults.
func (s *Store) Load() StorageConfig {
	var cfg StorageConfig
	found, err := pkgconfig.LoadSaved(s.path, &cfg)
	switch {
	case err != nil:
		cerr := &apperr.ConfigError{Path: s.path, Err: err}
		s.logger.Warn("settings: falling back to defaults", slog.String("error", cerr.Error()))
		cfg = Defaults()
	case !found:
		cfg = Defaults()
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Debug("settings: loaded",
		slog.String("path", s.path),
		slog.Bool("use_local_storage", cfg.UseLocalStorage))
	return cfg.clone()
}

// Current returns a copy of the in-memory configuration.
func (s *Store) Current() StorageConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// Save merges p into the configuration and persists the result. The new value
// is only published once it has been written.
func (s *Store) Save(p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := p.apply(s.cfg)
	if err := next.validateSave(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidConfig, err)
	}
	if err := pkgconfig.Save(s.path, &next); err != nil {
		return err
	}
	s.cfg = next
	s.logger.Info("settings: saved",
		slog.Bool("use_local_storage", next.UseLocalStorage),
		slog.Any("base_path", next.BasePath))
	return nil
}
