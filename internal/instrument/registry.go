package instrument

import "sync"

// Registry is the session-scoped store of live instruments. It is owned
// exclusively by the session controller and holds nothing across restarts.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Instrument
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Instrument)}
}

// Add stores an instrument under its identifier.
func (r *Registry) Add(in Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[in.ID]; !exists {
		r.order = append(r.order, in.ID)
	}
	r.byID[in.ID] = in
}

// Remove deletes an instrument by id, reporting whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the instrument with the given id.
func (r *Registry) Get(id string) (Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.byID[id]
	return in, ok
}

// All returns every live instrument in insertion order.
func (r *Registry) All() []Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instrument, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ByFile returns the instruments targeting the given resolved absolute path,
// in insertion order. Callers must resolve relative inputs the same way
// instruments were created.
func (r *Registry) ByFile(path string) []Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Instrument
	for _, id := range r.order {
		if in := r.byID[id]; in.File == path {
			out = append(out, in)
		}
	}
	return out
}

// MarkStale flags every instrument in the given file as stale and returns
// how many were flagged.
func (r *Registry) MarkStale(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, in := range r.byID {
		if in.File == path && !in.Stale {
			in.Stale = true
			r.byID[id] = in
			n++
		}
	}
	return n
}

// Clear drops every instrument.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byID = make(map[string]Instrument)
}

// Len returns the number of live instruments.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
