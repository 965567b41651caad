package modal

import (
	"fmt"
	"sync"
)

// Registry tracks live sessions by id so control operations can address a
// session after it was started.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*LiveSession
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*LiveSession)}
}

// Put registers a started session under its id.
func (r *Registry) Put(s *LiveSession) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
}

// Get resolves a session id.
func (r *Registry) Get(id string) (*LiveSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no active session %s", id)
	}
	return s, nil
}

// Remove drops a session from the registry, typically after Stop.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// IDs lists the active session ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}
