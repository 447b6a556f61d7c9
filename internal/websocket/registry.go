package websocket

import (
	"sync"
)

// Registry indexes the sessions held by this process. It is the local half of
// presence; the durable connection registry is the cross-instance half.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Session // user id -> connection id -> session
	byID     map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]*Session),
		byID:     make(map[string]*Session),
	}
}

// Add keeps every session of a user; several devices may be connected at
// once in the same namespace.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.UserID] == nil {
		r.sessions[s.UserID] = make(map[string]*Session)
	}
	r.sessions[s.UserID][s.ID] = s
	r.byID[s.ID] = s
}

// Remove only drops the entry if it still points at s, so a late cleanup
// cannot evict a different session registered under the same id.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byID[s.ID]; ok && current == s {
		delete(r.byID, s.ID)
	}
	if conns, ok := r.sessions[s.UserID]; ok {
		if current, ok := conns[s.ID]; ok && current == s {
			delete(conns, s.ID)
			if len(conns) == 0 {
				delete(r.sessions, s.UserID)
			}
		}
	}
}

func (r *Registry) Get(connectionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[connectionID]
	return s, ok
}

func (r *Registry) GetUserSessions(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Session
	for _, s := range r.sessions[userID] {
		result = append(result, s)
	}
	return result
}

// Deliver queues a pre-encoded frame on a local connection. It reports false
// when the connection is not held here or its queue rejected the frame.
func (r *Registry) Deliver(connectionID, namespace string, frame []byte) bool {
	s, ok := r.Get(connectionID)
	if !ok || string(s.Namespace) != namespace {
		return false
	}
	return s.TrySend(frame)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *Registry) CloseAll() {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		s.CloseWithReason(1001, "server shutting down")
	}
}
