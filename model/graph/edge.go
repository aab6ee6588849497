package graph

// Edge represents a guarded transition triggered by an event.
type Edge struct {
	// Event is the name of the triggering event
	Event string `json:"event" yaml:"event"`

	// From lists source states; AnyState matches every state
	From []string `json:"from" yaml:"from"`

	// To is the destination state
	To string `json:"to" yaml:"to"`

	// Guard names a predicate that must hold for the transition to apply
	Guard string `json:"guard,omitempty" yaml:"guard,omitempty"`

	// Before names hooks evaluated ahead of the guard
	Before []string `json:"before,omitempty" yaml:"before,omitempty"`

	// After names hooks run once the transition has been committed
	After []string `json:"after,omitempty" yaml:"after,omitempty"`

	// Actions names engine actions run inside the transition unit
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`

	finish bool
}

// Matches returns true when the edge can leave the given state.
func (e *Edge) Matches(from string) bool {
	for _, candidate := range e.From {
		if candidate == AnyState || candidate == from {
			return true
		}
	}
	return false
}

// IsFinish returns true for the reserved terminal transition.
func (e *Edge) IsFinish() bool { return e.finish }

// Reentrant returns true when the edge leads back to its only source state.
func (e *Edge) Reentrant() bool {
	return len(e.From) == 1 && e.From[0] == e.To
}

// EdgeOption customises an edge declared via Builder.Transition.
type EdgeOption func(e *Edge)

// WithGuard sets the named guard predicate.
func WithGuard(name string) EdgeOption {
	return func(e *Edge) { e.Guard = name }
}

// WithBefore appends edge level before hooks.
func WithBefore(names ...string) EdgeOption {
	return func(e *Edge) { e.Before = append(e.Before, names...) }
}

// WithAfter appends after hooks.
func WithAfter(names ...string) EdgeOption {
	return func(e *Edge) { e.After = append(e.After, names...) }
}

// WithActions appends engine actions.
func WithActions(names ...string) EdgeOption {
	return func(e *Edge) { e.Actions = append(e.Actions, names...) }
}

func (e *Edge) clone() *Edge {
	ret := *e
	ret.From = append([]string(nil), e.From...)
	ret.Before = append([]string(nil), e.Before...)
	ret.After = append([]string(nil), e.After...)
	ret.Actions = append([]string(nil), e.Actions...)
	return &ret
}
