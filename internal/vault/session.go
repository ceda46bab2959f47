package vault

import (
	"context"
	"sync"
	"weak"

	"github.com/starford/folio/internal/capability"
)

// Session keeps only a weak reference to the capability. It never extends the
// capability's lifetime and forgets it once the owner lets go or the process
// exits, which models platforms that cannot persist directory handles.
type Session struct {
	mu  sync.Mutex
	ptr weak.Pointer[capability.Dir]
}

// NewSession returns an empty session vault.
func NewSession() *Session {
	return &Session{}
}

// Store keeps a weak reference to dir.
func (s *Session) Store(_ context.Context, dir *capability.Dir) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ptr = weak.Make(dir)
	return nil
}

// Fetch returns the capability if its owner still holds it.
func (s *Session) Fetch(_ context.Context) (*capability.Dir, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := s.ptr.Value()
	if dir == nil || dir.Revoked() {
		return nil, nil
	}
	return dir, nil
}

// Clear drops the reference.
func (s *Session) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ptr = weak.Pointer[capability.Dir]{}
	return nil
}
