package graph

// canonicalSequence expands a guard-free path from the initial state. At each
// state it follows the outgoing target with the lowest priority that has not
// been visited yet; self loops and terminal targets are skipped. The
// expansion stops once no such target remains and the designated terminal
// state is appended as the final step.
func (g *Graph) canonicalSequence() []string {
	terminal := g.terminal.Name
	if g.initial.Name == terminal {
		return []string{terminal}
	}
	visited := map[string]bool{}
	var steps []string
	for current := g.initial; current != nil; {
		steps = append(steps, current.Name)
		visited[current.Name] = true
		current = g.nextStep(current.Name, visited)
	}
	return append(steps, terminal)
}

func (g *Graph) nextStep(from string, visited map[string]bool) *State {
	var next *State
	for _, edge := range g.edges {
		if edge.finish || !edge.Matches(from) {
			continue
		}
		target := g.states[edge.To]
		if target.Name == from || target.Terminal || visited[target.Name] {
			continue
		}
		if next == nil || target.Priority < next.Priority {
			next = target
		}
	}
	return next
}
