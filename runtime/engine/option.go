package engine

import (
	"github.com/viant/fixflow/observability"
	"github.com/viant/fixflow/runtime/guard"
)

// Option customises the Engine.
type Option func(e *Engine)

// WithRegistry sets the guard registry; defaults to guard.NewRegistry().
func WithRegistry(registry *guard.Registry) Option {
	return func(e *Engine) { e.registry = registry }
}

// WithAction registers a named edge action.
func WithAction(name string, action Action) Option {
	return func(e *Engine) { e.actions[name] = action }
}

// WithStrategy binds per-state behaviour.
func WithStrategy(state string, strategy Strategy) Option {
	return func(e *Engine) { e.strategies[state] = strategy }
}

// WithPublisher sets the transition event publisher.
func WithPublisher(publisher Publisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithObserver sets the observability sink.
func WithObserver(observer observability.Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// WithTracing wraps Fire and Start in OpenTelemetry spans.
func WithTracing(enabled bool) Option {
	return func(e *Engine) { e.tracing = enabled }
}
