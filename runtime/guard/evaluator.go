package guard

import (
	"context"
	"fmt"

	"github.com/viant/fixflow/model/graph"
)

// Evaluator runs graph-wide hooks, edge hooks and the edge guard, in that
// order, stopping at the first veto.
type Evaluator struct {
	graph    *graph.Graph
	registry *Registry
}

// Evaluate returns the verdict for c.Edge. Infrastructure errors are returned
// as errors, vetoes as a negative verdict.
func (e *Evaluator) Evaluate(ctx context.Context, c *Context) (Verdict, error) {
	for _, name := range e.graph.Before() {
		if verdict, err := e.runHook(ctx, name, c); err != nil || !verdict.Allowed {
			return verdict, err
		}
	}
	for _, name := range c.Edge.Before {
		if verdict, err := e.runHook(ctx, name, c); err != nil || !verdict.Allowed {
			return verdict, err
		}
	}
	if c.Edge.Guard == "" {
		return Allow(), nil
	}
	predicate, ok := e.registry.Predicate(c.Edge.Guard)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnknownGuard, c.Edge.Guard)
	}
	allowed, err := predicate(ctx, c)
	if err != nil {
		return Verdict{}, fmt.Errorf("guard %s: %w", c.Edge.Guard, err)
	}
	if !allowed {
		return Reject(c.Edge.Guard, fmt.Sprintf("%s not satisfied", c.Edge.Guard)), nil
	}
	return Allow(), nil
}

func (e *Evaluator) runHook(ctx context.Context, name string, c *Context) (Verdict, error) {
	hook, ok := e.registry.Hook(name)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnknownHook, name)
	}
	verdict, err := hook(ctx, c)
	if err != nil {
		return Verdict{}, fmt.Errorf("hook %s: %w", name, err)
	}
	if !verdict.Allowed && verdict.Guard == "" {
		verdict.Guard = name
	}
	return verdict, nil
}

// After runs the edge after hooks, collecting their errors.
func (e *Evaluator) After(ctx context.Context, c *Context) []error {
	var errs []error
	for _, name := range c.Edge.After {
		hook, ok := e.registry.After(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownHook, name))
			continue
		}
		if err := hook(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("after hook %s: %w", name, err))
		}
	}
	return errs
}

// NewEvaluator binds a registry to a graph.
func NewEvaluator(g *graph.Graph, registry *Registry) *Evaluator {
	return &Evaluator{graph: g, registry: registry}
}
