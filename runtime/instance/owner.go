package instance

import (
	"context"
	"errors"
	"sync"
)

// ErrOwnerNotFound is returned when an owner cannot be resolved.
var ErrOwnerNotFound = errors.New("instance: owner not found")

// Owner is the physical entity under repair.
type Owner interface {
	Ref() Ref
	IsOpen() bool
	IsTerminal() bool
}

// Closer is implemented by owners that can be closed by a workflow hook.
type Closer interface {
	Close(ctx context.Context) error
}

// Lookup resolves owners referenced by instances.
type Lookup interface {
	Owner(ctx context.Context, ref Ref) (Owner, error)
}

// Registry is an in-memory Lookup.
type Registry struct {
	mux    sync.RWMutex
	owners map[Ref]Owner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: map[Ref]Owner{}}
}

// Put registers or replaces an owner.
func (r *Registry) Put(owner Owner) {
	r.mux.Lock()
	r.owners[owner.Ref()] = owner
	r.mux.Unlock()
}

func (r *Registry) Owner(_ context.Context, ref Ref) (Owner, error) {
	r.mux.RLock()
	owner, ok := r.owners[ref]
	r.mux.RUnlock()
	if !ok {
		return nil, ErrOwnerNotFound
	}
	return owner, nil
}

// Basic is a minimal, concurrency-safe Owner implementation.
type Basic struct {
	ref      Ref
	mux      sync.RWMutex
	open     bool
	terminal bool
}

// NewBasic creates an open, non-terminal owner.
func NewBasic(ownerType, id string) *Basic {
	return &Basic{ref: Ref{Type: ownerType, ID: id}, open: true}
}

func (b *Basic) Ref() Ref { return b.ref }

func (b *Basic) IsOpen() bool {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.open
}

func (b *Basic) IsTerminal() bool {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.terminal
}

// SetOpen changes the open flag.
func (b *Basic) SetOpen(open bool) {
	b.mux.Lock()
	b.open = open
	b.mux.Unlock()
}

// SetTerminal changes the terminal flag.
func (b *Basic) SetTerminal(terminal bool) {
	b.mux.Lock()
	b.terminal = terminal
	b.mux.Unlock()
}

// Close marks the owner closed.
func (b *Basic) Close(context.Context) error {
	b.SetOpen(false)
	return nil
}
