// Package apperr defines the error taxonomy shared by the storage layer.
//
// Only FileBackendError and CapabilityRequiredError are meant to reach
// business-logic callers; the other kinds are absorbed by the component that
// produced them and turned into state transitions or log lines.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidName        = errors.New("invalid name")
	ErrCapabilityRequired = errors.New("capability required")
	ErrConflict           = errors.New("conflict")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidDirectory   = errors.New("invalid directory")
)

// ConfigError reports a malformed or unreadable storage configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// VaultError reports a failed best-effort capability persistence operation.
type VaultError struct {
	Op  string
	Err error
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("vault: %s: %v", e.Op, e.Err)
}

func (e *VaultError) Unwrap() error { return e.Err }

// ProbeError reports that a directory capability is no longer usable.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// FileBackendError is any I/O failure while operating on a bound directory.
// Permission problems, moved directories and disk errors are not told apart.
type FileBackendError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileBackendError) Error() string {
	return fmt.Sprintf("file backend: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileBackendError) Unwrap() error { return e.Err }

// CapabilityRequiredError is returned for writes attempted while file-backed
// storage is configured but no directory is bound.
type CapabilityRequiredError struct {
	Op string
}

func (e *CapabilityRequiredError) Error() string {
	return fmt.Sprintf("%s: directory access required, select the storage folder again", e.Op)
}

// Is reports ErrCapabilityRequired as a match.
func (e *CapabilityRequiredError) Is(target error) bool {
	return target == ErrCapabilityRequired
}
