package engine

// HasRunner reports whether a runner is attached to id.
func (r *Registry) HasRunner(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runners[id]
	return ok
}
