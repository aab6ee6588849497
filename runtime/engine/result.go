package engine

import (
	"github.com/viant/fixflow/model/graph"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/audit"
)

// Payload is the opaque routing value returned after a transition.
type Payload map[string]interface{}

// Result describes the outcome of Fire.
type Result struct {
	Instance *instance.Instance
	Event    string
	From     string
	To       string
	Edge     *graph.Edge
	Record   *audit.Record
	// Action tells the caller what to present next; nil when the state has
	// no routing strategy or the strategy failed after commit
	Action Payload
}

// Step pairs a canonical step with the last record that entered it.
type Step struct {
	State  string
	Record *audit.Record
}
