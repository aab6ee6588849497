package engine

import (
	"context"
	"time"

	"github.com/viant/fixflow/model/graph"
	"github.com/viant/fixflow/runtime/instance"
)

// ActionContext is passed to edge actions. Instance is the pending copy that
// will be committed when every action succeeds.
type ActionContext struct {
	Instance *instance.Instance
	Owner    instance.Owner
	Edge     *graph.Edge
	From     string
	Args     instance.Args
	// At is the timestamp of the transition being applied
	At time.Time
}

// Action is a side effect run inside the transition unit. The returned undo
// is invoked when the unit fails to commit.
type Action func(ctx context.Context, c *ActionContext) (instance.Undo, error)
