package session

import "sync"

// Registry owns the live session set and a queue of sessions that have
// connected but not yet been accepted into a tick. The tick loop drains
// Pending once per frame, never blocking on new connections mid-tick.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	pending  []*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Enqueue registers a newly connected session for pickup by the next tick.
func (r *Registry) Enqueue(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, s)
}

// DrainPending returns and clears the queue of not-yet-accepted sessions,
// adding each to the live set. A pending session whose id collides with an
// already-live session is left pending rather than installed: the
// requested id is authoritative, but the previous session remains live
// until its own transport closes it, so the newcomer is retried on a
// later tick once that id frees up.
func (r *Registry) DrainPending() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	candidates := r.pending
	r.pending = nil

	accepted := make([]*Session, 0, len(candidates))
	for _, s := range candidates {
		if _, exists := r.sessions[s.ID]; exists {
			r.pending = append(r.pending, s)
			continue
		}
		r.sessions[s.ID] = s
		accepted = append(accepted, s)
	}
	return accepted
}

// Remove drops a session from the live set.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// All returns a snapshot slice of the currently live sessions.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Get looks up a live session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of currently live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
