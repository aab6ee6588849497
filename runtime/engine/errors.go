package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition is returned when no edge matches the event from
	// the current state.
	ErrIllegalTransition = errors.New("engine: illegal transition")
	// ErrGuardRejected is returned when a guard or hook vetoed the transition.
	ErrGuardRejected = errors.New("engine: guard rejected")
	// ErrStorage wraps persistence failures of the transition unit.
	ErrStorage = errors.New("engine: storage failure")
	// ErrUnknownAction is returned when an edge names an unregistered action.
	ErrUnknownAction = errors.New("engine: unknown action")
	// ErrInstanceNotFound is returned for unknown instance ids.
	ErrInstanceNotFound = errors.New("engine: instance not found")
)

// Error keys set on instance.Instance.Errors.
const (
	ErrorKeyIllegal  = "illegal_transition"
	ErrorKeyRejected = "action_unallowed"
)

// RejectionKind distinguishes expected transition refusals.
type RejectionKind int

const (
	Illegal RejectionKind = iota
	Rejected
)

// RejectionError describes a refused transition; it unwraps to
// ErrIllegalTransition or ErrGuardRejected.
type RejectionError struct {
	Kind   RejectionKind
	Event  string
	State  string
	Guard  string
	Reason string
}

func (e *RejectionError) Error() string {
	if e.Kind == Illegal {
		return fmt.Sprintf("engine: illegal transition %s from %s", e.Event, e.State)
	}
	return fmt.Sprintf("engine: %s from %s rejected: %s", e.Event, e.State, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	if e.Kind == Illegal {
		return ErrIllegalTransition
	}
	return ErrGuardRejected
}

// Reason returns the rejection reason of err, empty when err is not a
// rejection.
func Reason(err error) string {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Reason
	}
	return ""
}
