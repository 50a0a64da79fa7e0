package remote

import (
	"context"
	"sync"

	"cachecore/pkg/domain"
)

// StaticSession is a Session with an explicitly set identity. The zero value
// reports no session; Establish and Clear flip availability at runtime, which
// is how tests and the CLI model sign-in and sign-out.
type StaticSession struct {
	mu   sync.RWMutex
	id   string
	role domain.Role
	ok   bool
}

// Establish records the authenticated identity.
func (s *StaticSession) Establish(id string, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.role, s.ok = id, role, true
}

// Clear drops the session.
func (s *StaticSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.role, s.ok = "", "", false
}

// CurrentUser implements Session.
func (s *StaticSession) CurrentUser(context.Context) (string, domain.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.role, s.ok
}
