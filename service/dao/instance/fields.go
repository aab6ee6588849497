package instance

import (
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/dao/criteria"
)

// Filterable parameter names.
const (
	ParamState     = "State"
	ParamWorkflow  = "Workflow"
	ParamOwnerType = "OwnerType"
	ParamOwnerID   = "OwnerID"
)

// Fields exposes instance attributes to criteria.Match.
func Fields(i *instance.Instance) criteria.Fields {
	return func(name string) (string, bool) {
		switch name {
		case ParamState:
			return i.State, true
		case ParamWorkflow:
			return i.Workflow, true
		case ParamOwnerType:
			return i.Owner.Type, true
		case ParamOwnerID:
			return i.Owner.ID, true
		}
		return "", false
	}
}
