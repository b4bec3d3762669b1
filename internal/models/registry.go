package models

import (
	"fmt"
	"sort"
)

// Registry holds the fixed set of configured learners keyed by identity,
// preserving insertion order for deterministic iteration.
type Registry struct {
	order  []string
	byName map[string]Regressor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Regressor)}
}

// Add registers a learner under its identity.
func (r *Registry) Add(m Regressor) error {
	name := m.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("model %q already registered", name)
	}
	r.order = append(r.order, name)
	r.byName[name] = m
	return nil
}

// Get returns the learner for an identity.
func (r *Registry) Get(name string) (Regressor, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Replace swaps in a learner for an existing identity, used when loading
// persisted models.
func (r *Registry) Replace(m Regressor) error {
	name := m.Name()
	if _, exists := r.byName[name]; !exists {
		return fmt.Errorf("model %q not registered", name)
	}
	r.byName[name] = m
	return nil
}

// Names returns the identities in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// SortedNames returns the identities in lexical order.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// Len returns the number of registered learners.
func (r *Registry) Len() int { return len(r.order) }
