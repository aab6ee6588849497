package graph

import "errors"

var (
	// ErrNoInitialState is returned when no state is flagged initial.
	ErrNoInitialState = errors.New("graph: no initial state")

	// ErrMultipleInitialStates is returned when more than one state is initial.
	ErrMultipleInitialStates = errors.New("graph: multiple initial states")

	// ErrNoTerminalState is returned when no state is flagged terminal.
	ErrNoTerminalState = errors.New("graph: no terminal state")

	// ErrDuplicateState is returned when a state name is declared twice.
	ErrDuplicateState = errors.New("graph: duplicate state")

	// ErrPriorityCollision is returned when two states share a priority.
	ErrPriorityCollision = errors.New("graph: priority collision")

	// ErrUnknownState is returned when an edge references an undeclared state.
	ErrUnknownState = errors.New("graph: unknown state")

	// ErrInvalidEdge is returned for edges missing an event or endpoint.
	ErrInvalidEdge = errors.New("graph: invalid edge")
)
