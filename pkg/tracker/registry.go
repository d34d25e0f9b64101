package tracker

import "sync"

// Registry is the caller-owned guard enforcing at most one active tracker
// per runtime context. It replaces an implicit process-wide singleton: the
// embedding decides the scope by deciding how many registries exist.
type Registry struct {
	mu     sync.Mutex
	active *Tracker
}

// NewRegistry creates an empty guard slot.
func NewRegistry() *Registry {
	return &Registry{}
}

// Active returns the currently active tracker, or nil.
func (r *Registry) Active() *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// acquire claims the slot for t. When the slot is occupied it returns the
// existing instance and false, so callers reuse it instead of double-patching.
func (r *Registry) acquire(t *Tracker) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return r.active, false
	}
	r.active = t
	return t, true
}

// release frees the slot if t still owns it, allowing a fresh instance.
func (r *Registry) release(t *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == t {
		r.active = nil
	}
}
