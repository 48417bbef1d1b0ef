package manager

import (
	"sort"
	"sync"

	"Go2NetModel/internal/model"
)

// Registry is a model.Sink that remembers the latest snapshot per topic.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[string]model.Snapshot
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]model.Snapshot)}
}

// Publish implements model.Sink.
func (r *Registry) Publish(s model.Snapshot) error {
	r.mu.Lock()
	r.models[s.ID] = s
	r.mu.Unlock()
	return nil
}

// Close implements model.Sink. The registry stays readable after Close.
func (r *Registry) Close() error { return nil }

// Get returns the latest snapshot for topic.
func (r *Registry) Get(topic string) (model.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.models[topic]
	return s, ok
}

// All returns every known snapshot ordered by topic.
func (r *Registry) All() []model.Snapshot {
	r.mu.RLock()
	out := make([]model.Snapshot, 0, len(r.models))
	for _, s := range r.models {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
