// Package session holds the authenticated identity for one client session.
// A Store is built once at the composition root and passed to every flow.
package session

import (
	"sync"
	"time"

	"github.com/wolfman30/clinic-portal/internal/api"
)

// Identity exposes the current user to flows.
type Identity interface {
	Current() (api.User, bool)
}

// Store is the session-scoped identity holder.
type Store struct {
	mu        sync.RWMutex
	user      *api.User
	expiresAt time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the signed-in user.
func (s *Store) Current() (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return api.User{}, false
	}
	return *s.user, true
}

// Set records the signed-in user and the session expiry (zero if unknown).
func (s *Store) Set(user api.User, expiresAt time.Time) {
	s.mu.Lock()
	s.user = &user
	s.expiresAt = expiresAt
	s.mu.Unlock()
}

// ExpiresAt returns the known session expiry.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Clear forgets the user.
func (s *Store) Clear() {
	s.mu.Lock()
	s.user = nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}
