package apperr

import (
	"errors"
	"io/fs"
	"testing"
)

func TestCapabilityRequiredMatchesSentinel(t *testing.T) {
	var err error = &CapabilityRequiredError{Op: "save record"}
	if !errors.Is(err, ErrCapabilityRequired) {
		t.Fatal("expected errors.Is to match ErrCapabilityRequired")
	}
	var cre *CapabilityRequiredError
	if !errors.As(err, &cre) || cre.Op != "save record" {
		t.Errorf("errors.As = %v", cre)
	}
}

func TestFileBackendErrorUnwraps(t *testing.T) {
	err := error(&FileBackendError{Op: "read", Path: "records/a.json", Err: fs.ErrPermission})
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("expected wrapped fs.ErrPermission")
	}
	if errors.Is(err, ErrCapabilityRequired) {
		t.Error("file backend error must not look like capability required")
	}
}
