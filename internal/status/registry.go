// internal/status/registry.go
package status

import "sync"

// Registry holds the single ConnectionStatus instance.
// Reads are open to everyone; Update is reserved for the connection manager.
type Registry struct {
	mu  sync.RWMutex
	cur ConnectionStatus
}

// NewRegistry returns a registry in the boot state.
func NewRegistry(maxAttempts int) *Registry {
	return &Registry{cur: ConnectionStatus{
		MaxReconnectAttempts: maxAttempts,
		State:                StateDisconnected,
	}}
}

// Current returns a copy of the current status.
func (r *Registry) Current() ConnectionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur
}

// Update applies fn to the status and returns the result.
// A status that becomes connected always has its attempt counter reset.
func (r *Registry) Update(fn func(s *ConnectionStatus)) ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.cur
	fn(&next)

	if next.IsConnected {
		next.ReconnectAttempts = 0
		next.State = StateConnected
	}

	r.cur = next
	return next
}
