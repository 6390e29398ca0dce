package notify

import "sync"

// Endpoint is a live transport handle for one connected user session.
// The websocket layer implements it; tests substitute fakes.
type Endpoint interface {
	Emit(event string, payload any) error
}

// Registry maps online users to their live session endpoint. One slot
// per user: a new registration overwrites the previous endpoint
// (last-connected-wins). Pure in-memory state, lost on restart; clients
// re-authenticate and re-register.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[uint]Endpoint
}

// NewRegistry returns an empty registry. Construct once at process start
// and hand the same instance to the websocket layer and the dispatcher.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[uint]Endpoint)}
}

// Register stores the endpoint for a user, replacing any previous one.
func (r *Registry) Register(userID uint, ep Endpoint) {
	r.mu.Lock()
	r.endpoints[userID] = ep
	r.mu.Unlock()
}

// Unregister drops the user's endpoint. The ep guard keeps a stale
// disconnect from evicting a newer connection that already took the slot.
func (r *Registry) Unregister(userID uint, ep Endpoint) {
	r.mu.Lock()
	if cur, ok := r.endpoints[userID]; ok && (ep == nil || cur == ep) {
		delete(r.endpoints, userID)
	}
	r.mu.Unlock()
}

// Lookup returns the user's endpoint. A missing entry is the normal
// "user offline" case, not a failure.
func (r *Registry) Lookup(userID uint) (Endpoint, bool) {
	r.mu.RLock()
	ep, ok := r.endpoints[userID]
	r.mu.RUnlock()
	return ep, ok
}

// Online reports how many users currently hold a live endpoint.
func (r *Registry) Online() int {
	r.mu.RLock()
	n := len(r.endpoints)
	r.mu.RUnlock()
	return n
}
