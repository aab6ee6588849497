package guard

import (
	"context"

	"github.com/viant/fixflow/runtime/instance"
)

// ReasonOwnerClosed is reported when the owner is no longer open.
const ReasonOwnerClosed = "owner closed"

// OwnerOpen holds while the owner entity is open.
func OwnerOpen(_ context.Context, c *Context) (bool, error) {
	return c.Owner != nil && c.Owner.IsOpen(), nil
}

// OwnerMustBeOpen vetoes every transition of a closed owner.
func OwnerMustBeOpen(name string) Hook {
	return PredicateHook(name, ReasonOwnerClosed, OwnerOpen)
}

// CloseOwner closes owners implementing instance.Closer.
func CloseOwner(ctx context.Context, c *Context) error {
	if closer, ok := c.Owner.(instance.Closer); ok {
		return closer.Close(ctx)
	}
	return nil
}
