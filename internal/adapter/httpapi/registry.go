package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nestara/console-backend/internal/usecase/session"
)

// Registry holds the live form sessions, keyed by session ID
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*session.Session)}
}

// Put stores a session
func (r *Registry) Put(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session with the given ID
func (r *Registry) Get(id uuid.UUID) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove closes and deletes the session with the given ID
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Close()
		delete(r.sessions, id)
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
