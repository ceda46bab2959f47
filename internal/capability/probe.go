package capability

import (
	"fmt"

	"github.com/starford/folio/internal/apperr"
)

// Probe checks that d is still usable by resolving its records directory.
// It only reads, so it is safe to run on every startup.
func Probe(d *Dir) error {
	root, err := d.Root()
	if err != nil {
		return &apperr.ProbeError{Path: d.Path(), Err: err}
	}
	info, err := root.Stat(RecordsDir)
	if err != nil {
		return &apperr.ProbeError{Path: d.Path(), Err: err}
	}
	if !info.IsDir() {
		return &apperr.ProbeError{Path: d.Path(), Err: fmt.Errorf("%s is not a directory", RecordsDir)}
	}
	return nil
}
