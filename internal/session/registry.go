package session

import (
	"sync"

	"github.com/felipe/wagateway/internal/logger"
)

// Registry is the process-wide Session Registry: a mapping
// from session id to supervisor. At most one supervisor exists per session
// id; Get takes only the RWMutex read lock, so concurrent readers do not
// block each other; CreateIfAbsent is atomic.
type Registry struct {
	mu sync.RWMutex
	supervisors map[string]*Supervisor
	logger *logger.ComponentLogger
}

func NewRegistry() *Registry {
	return &Registry{
		supervisors: make(map[string]*Supervisor),
		logger: logger.ForComponent("session_registry"),
	}
}

// Get returns the supervisor for sessionID, if any is registered.
func (r *Registry) Get(sessionID string) (*Supervisor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sup, ok := r.supervisors[sessionID]
	return sup, ok
}

// CreateIfAbsent atomically installs sup unless a supervisor already
// exists for its session id, in which case the new one is rejected and
// the caller must discard it.
func (r *Registry) CreateIfAbsent(sessionID string, sup *Supervisor) (*Supervisor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.supervisors[sessionID]; ok {
		return existing, false
	}
	r.supervisors[sessionID] = sup
	return sup, true
}

// Remove deletes a session's registry entry. A supervisor calls this on
// itself when it enters a terminal state, and Start calls it when the
// worker cannot be built.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.supervisors, sessionID)
}

// ForEachForUser invokes fn for every registered supervisor owned by
// userID. Used to force sibling sessions into disconnected when a new
// session reaches ready.
func (r *Registry) ForEachForUser(userID string, fn func(*Supervisor)) {
	r.mu.RLock()
	var matches []*Supervisor
	for _, sup := range r.supervisors {
		if sup.UserID() == userID {
			matches = append(matches, sup)
		}
	}
	r.mu.RUnlock()
	for _, sup := range matches {
		fn(sup)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.supervisors)
}
