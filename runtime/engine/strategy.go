package engine

import (
	"context"

	"github.com/viant/fixflow/runtime/instance"
)

// TargetFinish is the action hash target of a finished instance.
const TargetFinish = "finish"

// Strategy holds the per-state behaviour looked up by the engine.
type Strategy struct {
	// ActionHash resolves the routing payload of an instance in the state
	ActionHash func(ctx context.Context, inst *instance.Instance) (Payload, error)
	// UserCan decides whether a user may perform an action in the state
	UserCan func(ctx context.Context, inst *instance.Instance, userID, action string) (bool, error)
}

// FinishStrategy routes finished instances to their owner.
func FinishStrategy() Strategy {
	return Strategy{
		ActionHash: func(_ context.Context, inst *instance.Instance) (Payload, error) {
			return Payload{"target": TargetFinish, "owner": inst.Owner.ID}, nil
		},
	}
}
