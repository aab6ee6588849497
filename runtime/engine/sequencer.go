package engine

import (
	"sync"

	"github.com/viant/fixflow/model/graph"
)

// sequencer caches the canonical steps of the graph, one entry per owner
// terminal status, so its size does not grow with the number of instances.
type sequencer struct {
	graph *graph.Graph
	mux   sync.RWMutex
	cache map[bool][]string
	// computed counts recomputations
	computed int
}

func (s *sequencer) Steps(ownerTerminal bool) []string {
	s.mux.RLock()
	steps, ok := s.cache[ownerTerminal]
	s.mux.RUnlock()
	if !ok {
		s.mux.Lock()
		if steps, ok = s.cache[ownerTerminal]; !ok {
			steps = s.graph.Sequence()
			s.cache[ownerTerminal] = steps
			s.computed++
		}
		s.mux.Unlock()
	}
	return append([]string(nil), steps...)
}

func newSequencer(g *graph.Graph) *sequencer {
	return &sequencer{graph: g, cache: map[bool][]string{}}
}
