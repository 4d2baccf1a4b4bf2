package plugin

import (
	"fmt"
	"sort"
)

// InTreeRegistry maps plugin names to the factories compiled into the binary.
// Loading a plugin by name resolves its factory here.
type InTreeRegistry struct {
	factories map[string]Factory
}

// NewInTreeRegistry creates an empty in-tree plugin registry.
func NewInTreeRegistry() *InTreeRegistry {
	return &InTreeRegistry{factories: make(map[string]Factory)}
}

// Register adds a plugin factory. It fails if the name is taken.
func (r *InTreeRegistry) Register(name string, factory Factory) error {
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("plugin factory %q is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is Register that panics on error.
func (r *InTreeRegistry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns the factory registered for name.
func (r *InTreeRegistry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered plugin names, sorted.
func (r *InTreeRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered factories.
func (r *InTreeRegistry) Len() int {
	return len(r.factories)
}
