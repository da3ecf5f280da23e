package recipe

import (
	"fmt"
	"sync"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// Book resolves recipe names to compositions
type Book interface {
	Composition(name string) (material.Composition, error)
}

// Registry is an in-memory Book that remembers registration order.
// Reads are safe for concurrent use so one registry can back several scenario runs.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	recipes map[string]material.Composition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{recipes: make(map[string]material.Composition)}
}

// Add registers a recipe. Re-adding a name replaces its composition and keeps its position.
func (r *Registry) Add(name string, comp material.Composition) error {
	if name == "" {
		return shared.NewValidationError("recipe", "name cannot be empty")
	}
	if comp.IsEmpty() {
		return shared.NewValidationError("recipe", fmt.Sprintf("recipe %s has no mass", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.recipes[name]; !exists {
		r.names = append(r.names, name)
	}
	r.recipes[name] = comp
	return nil
}

// Composition returns the composition registered under name
func (r *Registry) Composition(name string) (material.Composition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comp, ok := r.recipes[name]
	if !ok {
		return material.Composition{}, shared.NewUnknownRecipeError(name)
	}
	return comp, nil
}

// Names returns recipe names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
