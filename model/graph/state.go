package graph

// AnyState matches every declared state when used as an edge source.
const AnyState = "*"

// State represents a declared workflow state.
type State struct {
	// Name is the unique state identifier
	Name string `json:"name" yaml:"name"`

	// Priority orders states canonically; lower comes earlier
	Priority int `json:"priority" yaml:"priority"`

	Initial  bool `json:"initial,omitempty" yaml:"initial,omitempty"`
	Terminal bool `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// StateOption customises a state declared via Builder.State.
type StateOption func(s *State)

// AsInitial marks the state as the initial one.
func AsInitial() StateOption {
	return func(s *State) { s.Initial = true }
}

// AsTerminal marks the state as terminal.
func AsTerminal() StateOption {
	return func(s *State) { s.Terminal = true }
}
