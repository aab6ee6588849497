package graph

import (
	"errors"
	"fmt"
	"sort"
)

// Builder declares a transition graph. It is not safe for concurrent use; the
// graph it builds is immutable.
type Builder struct {
	name   string
	states []*State
	edges  []*Edge
	before []string
	finish *Edge
}

// NewBuilder creates a builder for the named workflow graph.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// State declares a state with its canonical priority.
func (b *Builder) State(name string, priority int, opts ...StateOption) *Builder {
	state := &State{Name: name, Priority: priority}
	for _, opt := range opts {
		opt(state)
	}
	b.states = append(b.states, state)
	return b
}

// Initial flags an already declared state as initial.
func (b *Builder) Initial(name string) *Builder {
	for _, state := range b.states {
		if state.Name == name {
			state.Initial = true
		}
	}
	return b
}

// Transition declares an edge from a single state (or AnyState).
func (b *Builder) Transition(event, from, to string, opts ...EdgeOption) *Builder {
	return b.TransitionFrom(event, []string{from}, to, opts...)
}

// TransitionFrom declares an edge leaving any of the supplied states.
func (b *Builder) TransitionFrom(event string, from []string, to string, opts ...EdgeOption) *Builder {
	edge := &Edge{Event: event, From: append([]string(nil), from...), To: to}
	for _, opt := range opts {
		opt(edge)
	}
	b.edges = append(b.edges, edge)
	return b
}

// Before registers hooks evaluated ahead of every transition.
func (b *Builder) Before(hooks ...string) *Builder {
	b.before = append(b.before, hooks...)
	return b
}

// Finish declares the reserved terminal transition. Its source is resolved at
// build time as the last non-terminal step of the canonical sequence.
func (b *Builder) Finish(event, terminal, guard string, opts ...EdgeOption) *Builder {
	edge := &Edge{Event: event, To: terminal, Guard: guard, finish: true}
	for _, opt := range opts {
		opt(edge)
	}
	b.finish = edge
	return b
}

// Build validates the declaration and returns the immutable graph.
func (b *Builder) Build() (*Graph, error) {
	if issues := b.validate(); len(issues) > 0 {
		return nil, fmt.Errorf("graph %s: %w", b.name, errors.Join(issues...))
	}
	g := &Graph{
		name:    b.name,
		states:  make(map[string]*State, len(b.states)),
		byEvent: make(map[string][]*Edge),
		before:  append([]string(nil), b.before...),
	}
	for _, declared := range b.states {
		state := *declared
		g.states[state.Name] = &state
		g.ordered = append(g.ordered, &state)
		if state.Initial {
			g.initial = &state
		}
		if state.Terminal {
			g.terminals = append(g.terminals, &state)
		}
	}
	sort.SliceStable(g.ordered, func(i, j int) bool { return g.ordered[i].Priority < g.ordered[j].Priority })
	sort.SliceStable(g.terminals, func(i, j int) bool { return g.terminals[i].Priority < g.terminals[j].Priority })
	g.terminal = g.terminals[len(g.terminals)-1]
	if b.finish != nil {
		g.terminal = g.states[b.finish.To]
	}
	for _, declared := range b.edges {
		g.addEdge(declared.clone())
	}
	g.sequence = g.canonicalSequence()
	if b.finish != nil {
		if len(g.sequence) < 2 {
			return nil, fmt.Errorf("graph %s: %w: finish %s has no step preceding %s", b.name, ErrInvalidEdge, b.finish.Event, g.terminal.Name)
		}
		finish := b.finish.clone()
		finish.From = []string{g.sequence[len(g.sequence)-2]}
		g.finishEvent = finish.Event
		g.addEdge(finish)
	}
	return g, nil
}

func (b *Builder) validate() []error {
	var issues []error
	names := map[string]bool{}
	priorities := map[int]string{}
	initial := 0
	terminal := 0
	for _, state := range b.states {
		if state.Name == "" || state.Name == AnyState {
			issues = append(issues, fmt.Errorf("%w: invalid state name %q", ErrUnknownState, state.Name))
			continue
		}
		if names[state.Name] {
			issues = append(issues, fmt.Errorf("%w: %s", ErrDuplicateState, state.Name))
		}
		names[state.Name] = true
		if other, ok := priorities[state.Priority]; ok {
			issues = append(issues, fmt.Errorf("%w: %s and %s share priority %d", ErrPriorityCollision, other, state.Name, state.Priority))
		}
		priorities[state.Priority] = state.Name
		if state.Initial {
			initial++
		}
		if state.Terminal {
			terminal++
		}
	}
	switch {
	case initial == 0:
		issues = append(issues, ErrNoInitialState)
	case initial > 1:
		issues = append(issues, ErrMultipleInitialStates)
	}
	if terminal == 0 {
		issues = append(issues, ErrNoTerminalState)
	}
	for i, edge := range b.edges {
		if edge.Event == "" || len(edge.From) == 0 || edge.To == "" {
			issues = append(issues, fmt.Errorf("%w: edge[%d] requires event, from and to", ErrInvalidEdge, i))
			continue
		}
		for _, from := range edge.From {
			if from != AnyState && !names[from] {
				issues = append(issues, fmt.Errorf("%w: %s (event %s)", ErrUnknownState, from, edge.Event))
			}
		}
		if !names[edge.To] {
			issues = append(issues, fmt.Errorf("%w: %s (event %s)", ErrUnknownState, edge.To, edge.Event))
		}
	}
	if f := b.finish; f != nil {
		switch {
		case f.Event == "":
			issues = append(issues, fmt.Errorf("%w: finish requires an event", ErrInvalidEdge))
		case !names[f.To]:
			issues = append(issues, fmt.Errorf("%w: %s (finish %s)", ErrUnknownState, f.To, f.Event))
		default:
			for _, state := range b.states {
				if state.Name == f.To && !state.Terminal {
					issues = append(issues, fmt.Errorf("%w: finish target %s is not terminal", ErrInvalidEdge, f.To))
				}
			}
		}
	}
	return issues
}
