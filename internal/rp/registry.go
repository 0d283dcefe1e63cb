package rp

// Registry is the ordered list of launch ids registered during one session.
// It is not safe for concurrent use.
type Registry struct {
	ids []string
}

// Add appends a launch id.
func (r *Registry) Add(id string) {
	r.ids = append(r.ids, id)
}

// IDs returns a copy of the registered ids in registration order. It never
// returns nil.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of registered ids.
func (r *Registry) Len() int { return len(r.ids) }
