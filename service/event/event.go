package event

import (
	"time"

	"github.com/viant/fixflow/internal/clock"
	"github.com/viant/fixflow/runtime/instance"
)

// Type names a published event kind.
const (
	TypeStarted    = "instance.started"
	TypeTransition = "instance.transition"
)

// Context describes the instance an event refers to.
type Context struct {
	InstanceID string       `json:"instanceID"`
	Workflow   string       `json:"workflow"`
	Owner      instance.Ref `json:"owner"`
	EventType  string       `json:"eventType"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

// Transition is the payload of TypeTransition and TypeStarted events.
type Transition struct {
	Event     string    `json:"event,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Seq       int       `json:"seq"`
	EnteredAt time.Time `json:"enteredAt"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
