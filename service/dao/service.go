// Package dao defines the persistence contract shared by instance and
// inspection stores.
package dao

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Load and Delete for unknown keys.
	ErrNotFound = errors.New("dao: not found")
	// ErrInvalidID is returned when an entity key is empty.
	ErrInvalidID = errors.New("dao: invalid id")
	// ErrNilEntity is returned by Save for a nil entity.
	ErrNilEntity = errors.New("dao: nil entity")
)

// Service stores entities of type T keyed by K. Implementations are safe for
// concurrent use and never hand out their internal copies.
type Service[K comparable, T any] interface {
	// Save inserts or replaces t.
	Save(ctx context.Context, t *T) error
	// Load returns ErrNotFound when id is unknown.
	Load(ctx context.Context, id K) (*T, error)
	// Delete returns ErrNotFound when id is unknown.
	Delete(ctx context.Context, id K) error
	// List returns entities matching every parameter, in insertion order.
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
