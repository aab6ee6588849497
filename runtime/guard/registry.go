package guard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/model/graph"
)

// Registry maps names used in graphs to predicates and hooks.
type Registry struct {
	mux        sync.RWMutex
	predicates map[string]Predicate
	hooks      map[string]Hook
	after      map[string]AfterHook
}

// RegisterPredicate binds a guard name.
func (r *Registry) RegisterPredicate(name string, p Predicate) *Registry {
	r.mux.Lock()
	r.predicates[name] = p
	r.mux.Unlock()
	return r
}

// RegisterHook binds a before hook name.
func (r *Registry) RegisterHook(name string, h Hook) *Registry {
	r.mux.Lock()
	r.hooks[name] = h
	r.mux.Unlock()
	return r
}

// RegisterAfter binds an after hook name.
func (r *Registry) RegisterAfter(name string, h AfterHook) *Registry {
	r.mux.Lock()
	r.after[name] = h
	r.mux.Unlock()
	return r
}

// Predicate returns the predicate registered under name.
func (r *Registry) Predicate(name string) (Predicate, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	p, ok := r.predicates[name]
	return p, ok
}

// Hook returns the before hook registered under name.
func (r *Registry) Hook(name string) (Hook, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	h, ok := r.hooks[name]
	return h, ok
}

// After returns the after hook registered under name.
func (r *Registry) After(name string) (AfterHook, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	h, ok := r.after[name]
	return h, ok
}

// Validate checks that every name referenced by g is registered.
func (r *Registry) Validate(g *graph.Graph) error {
	var errs []error
	for _, name := range g.Before() {
		if _, ok := r.Hook(name); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownHook, name))
		}
	}
	for _, event := range g.Events() {
		for _, edge := range g.EdgesFor(event) {
			if edge.Guard != "" {
				if _, ok := r.Predicate(edge.Guard); !ok {
					errs = append(errs, fmt.Errorf("%w: %s on %s", ErrUnknownGuard, edge.Guard, event))
				}
			}
			for _, name := range edge.Before {
				if _, ok := r.Hook(name); !ok {
					errs = append(errs, fmt.Errorf("%w: %s on %s", ErrUnknownHook, name, event))
				}
			}
			for _, name := range edge.After {
				if _, ok := r.After(name); !ok {
					errs = append(errs, fmt.Errorf("%w: %s on %s", ErrUnknownHook, name, event))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// NewRegistry creates a registry with the built-in hooks.
func NewRegistry() *Registry {
	ret := &Registry{
		predicates: map[string]Predicate{},
		hooks:      map[string]Hook{},
		after:      map[string]AfterHook{},
	}
	ret.RegisterHook(model.HookOwnerMustBeOpen, OwnerMustBeOpen(model.HookOwnerMustBeOpen))
	ret.RegisterAfter(model.HookCloseOwner, CloseOwner)
	return ret
}
