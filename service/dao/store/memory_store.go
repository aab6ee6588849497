package store

import (
	"context"
	"sync"

	"github.com/viant/fixflow/service/dao"
	"github.com/viant/fixflow/service/dao/criteria"
)

// MemoryStore is a generic in-memory implementation of dao.Service keyed by
// K. Values are copied on the way in and out so callers never share state
// with the store.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	order       []K
	keySelector func(*T) K
	clone       func(*T) *T
	fields      func(*T) criteria.Fields
}

// StoreOption customises a MemoryStore.
type StoreOption[K comparable, T any] func(*MemoryStore[K, T])

// WithClone sets the copy function; by default values are shallow copied.
func WithClone[K comparable, T any](clone func(*T) *T) StoreOption[K, T] {
	return func(s *MemoryStore[K, T]) { s.clone = clone }
}

// WithFields enables List filtering by dao.Parameter.
func WithFields[K comparable, T any](fields func(*T) criteria.Fields) StoreOption[K, T] {
	return func(s *MemoryStore[K, T]) { s.fields = fields }
}

// NewMemoryStore creates a new MemoryStore.
// keySelector extracts the entity key (usually the ID field) from a value.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, opts ...StoreOption[K, T]) *MemoryStore[K, T] {
	ret := &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
		clone: func(v *T) *T {
			c := *v
			return &c
		},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = s.clone(v)
	return nil
}

// Load returns a copy of the record stored under key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.clone(v), nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	for i, candidate := range s.order {
		if candidate == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns stored records in insertion order.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, key := range s.order {
		v := s.records[key]
		if len(parameters) > 0 && s.fields != nil && !criteria.Match(s.fields(v), parameters) {
			continue
		}
		out = append(out, s.clone(v))
	}
	return out, nil
}
