package benchmark

import (
	"context"
	"fmt"
	"sync"
)

// Operation is one unit of data-access work. Only its error and its
// duration matter to the harness; whatever it reads is discarded.
type Operation func(ctx context.Context) error

// Case is a named, registered strategy under benchmark.
type Case struct {
	Name      string
	Operation Operation
}

// Registry holds cases in registration order.
//
// A registry is sealed when a run starts; registration afterwards fails.
type Registry struct {
	mu     sync.RWMutex
	cases  []Case
	index  map[string]int
	sealed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register adds a case. The registry is unchanged when an error is returned.
func (r *Registry) Register(name string, op Operation) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCase)
	}
	if op == nil {
		return fmt.Errorf("%w: case %q has no operation", ErrInvalidCase, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q while a run is in progress", ErrInvalidCase, name)
	}
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCase, name)
	}

	r.index[name] = len(r.cases)
	r.cases = append(r.cases, Case{Name: name, Operation: op})
	return nil
}

// MustRegister is like Register but panics on error.
// Useful for static case tables built at startup.
func (r *Registry) MustRegister(name string, op Operation) {
	if err := r.Register(name, op); err != nil {
		panic(fmt.Sprintf("benchmark: %v", err))
	}
}

// Cases returns a copy of the registered cases in registration order.
func (r *Registry) Cases() []Case {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Case, len(r.cases))
	copy(out, r.cases)
	return out
}

// Names returns the registered case names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.cases))
	for i, c := range r.cases {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of registered cases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}

// Lookup returns the case registered under name.
func (r *Registry) Lookup(name string) (Case, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return Case{}, false
	}
	return r.cases[i], true
}

// Select returns a new registry holding only the named cases, kept in their
// original registration order. An empty selection returns a copy of r.
func (r *Registry) Select(names ...string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("%w: unknown case %q", ErrInvalidCase, name)
		}
		want[name] = true
	}

	selected := NewRegistry()
	for _, c := range r.cases {
		if len(want) > 0 && !want[c.Name] {
			continue
		}
		selected.index[c.Name] = len(selected.cases)
		selected.cases = append(selected.cases, c)
	}
	return selected, nil
}

// seal freezes the registry for the duration of a run and returns the
// function that unfreezes it.
func (r *Registry) seal() (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, fmt.Errorf("%w: registry is already in use by another run", ErrInvalidCase)
	}
	r.sealed = true

	return func() {
		r.mu.Lock()
		r.sealed = false
		r.mu.Unlock()
	}, nil
}
