package vacuum

import (
	"sort"
	"sync"
)

// Registry holds the adapters by host.
type Registry struct {
	mu      sync.RWMutex
	vacuums map[string]*Vacuum
}

func NewRegistry() *Registry {
	return &Registry{vacuums: make(map[string]*Vacuum)}
}

func (r *Registry) Get(id string) *Vacuum {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vacuums[id]
	if !ok {
		return nil
	}
	return v
}

func (r *Registry) Set(id string, v *Vacuum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vacuums[id] = v
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.vacuums, id)
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.vacuums[id]
	return exists
}

// List returns the adapters ordered by id.
func (r *Registry) List() []*Vacuum {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Vacuum, 0, len(r.vacuums))
	for _, v := range r.vacuums {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
