package graph

// Graph is an immutable transition graph. All accessors return copies so
// callers cannot alter the declaration.
type Graph struct {
	name        string
	states      map[string]*State
	ordered     []*State
	edges       []*Edge
	byEvent     map[string][]*Edge
	before      []string
	initial     *State
	terminal    *State
	terminals   []*State
	sequence    []string
	finishEvent string
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Has returns true when the state is declared.
func (g *Graph) Has(name string) bool {
	_, ok := g.states[name]
	return ok
}

// State returns the named state.
func (g *Graph) State(name string) (State, bool) {
	state, ok := g.states[name]
	if !ok {
		return State{}, false
	}
	return *state, true
}

// StatesByPriority returns states ordered ascending by priority.
func (g *Graph) StatesByPriority() []State {
	ret := make([]State, len(g.ordered))
	for i, state := range g.ordered {
		ret[i] = *state
	}
	return ret
}

// InitialState returns the unique initial state.
func (g *Graph) InitialState() State { return *g.initial }

// Terminal returns the designated terminal state: the finish target or, when
// no finish transition is declared, the terminal state with the highest
// priority.
func (g *Graph) Terminal() State { return *g.terminal }

// TerminalStates returns every terminal state ordered by priority.
func (g *Graph) TerminalStates() []State {
	ret := make([]State, len(g.terminals))
	for i, state := range g.terminals {
		ret[i] = *state
	}
	return ret
}

// IsTerminal returns true when the named state is terminal.
func (g *Graph) IsTerminal(name string) bool {
	state, ok := g.states[name]
	return ok && state.Terminal
}

// Before returns the graph-wide before hooks.
func (g *Graph) Before() []string {
	return append([]string(nil), g.before...)
}

// FinishEvent returns the reserved terminal event, or "" when none is declared.
func (g *Graph) FinishEvent() string { return g.finishEvent }

// Events returns event names in declaration order.
func (g *Graph) Events() []string {
	var ret []string
	seen := map[string]bool{}
	for _, edge := range g.edges {
		if seen[edge.Event] {
			continue
		}
		seen[edge.Event] = true
		ret = append(ret, edge.Event)
	}
	return ret
}

// EdgesFor returns candidate edges for an event in declaration order.
func (g *Graph) EdgesFor(event string) []*Edge {
	edges := g.byEvent[event]
	ret := make([]*Edge, len(edges))
	for i, edge := range edges {
		ret[i] = edge.clone()
	}
	return ret
}

// Match returns the edges for an event that can leave the given state, in
// declaration order.
func (g *Graph) Match(event, from string) []*Edge {
	var ret []*Edge
	for _, edge := range g.byEvent[event] {
		if edge.Matches(from) {
			ret = append(ret, edge.clone())
		}
	}
	return ret
}

// Sequence returns the canonical step sequence; the designated terminal state
// is always its last element.
func (g *Graph) Sequence() []string {
	return append([]string(nil), g.sequence...)
}

func (g *Graph) addEdge(edge *Edge) {
	g.edges = append(g.edges, edge)
	g.byEvent[edge.Event] = append(g.byEvent[edge.Event], edge)
}
