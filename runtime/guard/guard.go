// Package guard evaluates the predicates and hooks gating workflow transitions.
package guard

import (
	"context"
	"errors"

	"github.com/viant/fixflow/model/graph"
	"github.com/viant/fixflow/runtime/instance"
)

var (
	// ErrUnknownGuard is returned when an edge names an unregistered predicate.
	ErrUnknownGuard = errors.New("guard: unknown guard")
	// ErrUnknownHook is returned when a graph or edge names an unregistered hook.
	ErrUnknownHook = errors.New("guard: unknown hook")
)

// Context describes one transition attempt.
type Context struct {
	Instance *instance.Instance
	Owner    instance.Owner
	Edge     *graph.Edge
	From     string
	Event    string
	Args     instance.Args
}

// Verdict is the outcome of a guard evaluation.
type Verdict struct {
	Allowed bool
	// Guard names the predicate or hook that vetoed the transition
	Guard  string
	Reason string
}

// Allow returns a positive verdict.
func Allow() Verdict { return Verdict{Allowed: true} }

// Reject returns a veto issued by guard.
func Reject(guard, reason string) Verdict {
	return Verdict{Guard: guard, Reason: reason}
}

// Predicate decides whether a transition may apply.
type Predicate func(ctx context.Context, c *Context) (bool, error)

// Hook runs before the guard; it may veto the transition or act for side
// effects only.
type Hook func(ctx context.Context, c *Context) (Verdict, error)

// AfterHook runs once a transition has been committed.
type AfterHook func(ctx context.Context, c *Context) error

// Always is a predicate that always holds.
func Always(context.Context, *Context) (bool, error) { return true, nil }

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(ctx context.Context, c *Context) (bool, error) {
		ok, err := p(ctx, c)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
}

// And holds when every predicate holds; it stops at the first false one.
func And(predicates ...Predicate) Predicate {
	return func(ctx context.Context, c *Context) (bool, error) {
		for _, p := range predicates {
			ok, err := p(ctx, c)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Or holds when any predicate holds.
func Or(predicates ...Predicate) Predicate {
	return func(ctx context.Context, c *Context) (bool, error) {
		for _, p := range predicates {
			ok, err := p(ctx, c)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// PredicateHook turns a predicate into a vetoing hook.
func PredicateHook(name, reason string, p Predicate) Hook {
	return func(ctx context.Context, c *Context) (Verdict, error) {
		ok, err := p(ctx, c)
		if err != nil {
			return Verdict{}, err
		}
		if !ok {
			return Reject(name, reason), nil
		}
		return Allow(), nil
	}
}
