package audit

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOutOfOrder is returned when a record does not strictly follow the
	// last record of its instance.
	ErrOutOfOrder = errors.New("audit: record out of order")
	// ErrInvalidRecord is returned for nil or incomplete records.
	ErrInvalidRecord = errors.New("audit: invalid record")
)

// Trail is an append-only, per-instance, time-ordered log of state entries.
type Trail interface {
	// Append adds record to the instance log.
	Append(ctx context.Context, record *Record) error
	// Latest returns the most recent record entering state, nil when the
	// instance never entered it.
	Latest(ctx context.Context, instanceID, state string) (*Record, error)
	// List returns all records of an instance in ascending order.
	List(ctx context.Context, instanceID string) ([]*Record, error)
}

// CheckNext validates that next may be appended after last (nil for an
// empty log).
func CheckNext(last, next *Record) error {
	if next == nil || next.InstanceID == "" || next.State == "" {
		return ErrInvalidRecord
	}
	if next.EnteredAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	if last == nil {
		return nil
	}
	if next.Seq <= last.Seq {
		return fmt.Errorf("%w: seq %d after %d", ErrOutOfOrder, next.Seq, last.Seq)
	}
	if !next.EnteredAt.After(last.EnteredAt) {
		return fmt.Errorf("%w: %s not after %s", ErrOutOfOrder, next.EnteredAt, last.EnteredAt)
	}
	return nil
}
