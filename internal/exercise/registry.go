package exercise

import (
	"fmt"
	"sort"
	"sync"

	"github.com/practalearn/grader/internal/domain"
)

// Registry holds loaded exercises, keyed by ID. It is safe for concurrent
// readers while a reload swaps the content.
type Registry struct {
	mu        sync.RWMutex
	exercises map[string]*domain.Exercise
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{exercises: make(map[string]*domain.Exercise)}
}

// Put adds or replaces one exercise.
func (r *Registry) Put(ex *domain.Exercise) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exercises[ex.ID] = ex
}

// Replace swaps the whole content set, e.g. after a reload.
func (r *Registry) Replace(exercises []*domain.Exercise) error {
	next := make(map[string]*domain.Exercise, len(exercises))
	for _, ex := range exercises {
		if _, dup := next[ex.ID]; dup {
			return fmt.Errorf("duplicate exercise id %q", ex.ID)
		}
		next[ex.ID] = ex
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exercises = next
	return nil
}

// Get returns the exercise with the given ID.
func (r *Registry) Get(id string) (*domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.exercises[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrExerciseNotFound, id)
	}
	return ex, nil
}

// IDs lists all exercise IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.exercises))
	for id := range r.exercises {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports how many exercises are loaded.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exercises)
}
