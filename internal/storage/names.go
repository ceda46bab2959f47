package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/folio/internal/apperr"
)

// ValidateName checks that name is a plain file name component.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", apperr.ErrInvalidName)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", apperr.ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", apperr.ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", apperr.ErrInvalidName, name)
	}
	return nil
}

// CleanSubdir normalises a slash-separated relative subdirectory. An empty
// value selects def.
func CleanSubdir(subdir, def string) (string, error) {
	if strings.TrimSpace(subdir) == "" {
		return def, nil
	}
	if strings.ContainsRune(subdir, '\\') || strings.ContainsRune(subdir, 0) {
		return "", fmt.Errorf("%w: subdirectory %q", apperr.ErrInvalidName, subdir)
	}
	if path.IsAbs(subdir) {
		return "", fmt.Errorf("%w: absolute subdirectory %q", apperr.ErrInvalidName, subdir)
	}
	cleaned := path.Clean(subdir)
	if cleaned == "." {
		return "", fmt.Errorf("%w: subdirectory %q resolves to the root", apperr.ErrInvalidName, subdir)
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." || strings.HasPrefix(part, ".") {
			return "", fmt.Errorf("%w: subdirectory %q", apperr.ErrInvalidName, subdir)
		}
	}
	return cleaned, nil
}
