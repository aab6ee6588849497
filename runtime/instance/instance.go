package instance

import (
	"context"
	"time"
)

// Ref identifies an external entity (owner) by type and id.
type Ref struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// String returns type/id.
func (r Ref) String() string { return r.Type + "/" + r.ID }

// Instance represents one running workflow bound to an owner entity.
type Instance struct {
	ID       string `json:"id"`
	Workflow string `json:"workflow"`
	// State is always a state declared in the bound graph
	State string `json:"state"`
	Owner Ref    `json:"owner"`
	// AccessCode points at the inspection currently presented to callers
	AccessCode string `json:"accessCode,omitempty"`
	// SCN counts committed transitions, the creation included
	SCN       int       `json:"scn"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Errors carries rejection reasons of the latest attempt; never persisted
	Errors map[string]string `json:"-"`
}

// Clone returns a deep copy.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	ret := *i
	if i.Errors != nil {
		ret.Errors = make(map[string]string, len(i.Errors))
		for k, v := range i.Errors {
			ret.Errors[k] = v
		}
	}
	return &ret
}

// AddError attaches a rejection reason under key.
func (i *Instance) AddError(key, reason string) {
	if i.Errors == nil {
		i.Errors = make(map[string]string)
	}
	i.Errors[key] = reason
}

// Error returns the reason recorded under key.
func (i *Instance) Error(key string) string {
	return i.Errors[key]
}

// Undo reverts a side effect applied inside a transition unit.
type Undo func(ctx context.Context) error

// Undos runs undo functions in reverse order, returning the first error.
func Undos(ctx context.Context, undos []Undo) error {
	var first error
	for i := len(undos) - 1; i >= 0; i-- {
		if undos[i] == nil {
			continue
		}
		if err := undos[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
