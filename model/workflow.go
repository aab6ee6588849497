package model

import (
	"fmt"

	"github.com/viant/fixflow/model/graph"
)

// Workflow represents a declarative workflow definition
type Workflow struct {

	// Source provides information about the origin of the workflow
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// Name is the unique identifier for the workflow
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description of the workflow
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the workflow version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// SurveyTitle selects the questionnaire used by inspections
	SurveyTitle string `json:"surveyTitle,omitempty" yaml:"surveyTitle,omitempty"`

	// States declares the workflow states
	States []*graph.State `json:"states" yaml:"states"`

	// Events declares transitions grouped by triggering event
	Events []*Event `json:"events,omitempty" yaml:"events,omitempty"`

	// Before lists hooks evaluated ahead of every transition
	Before []string `json:"before,omitempty" yaml:"before,omitempty"`

	// Finish declares the reserved terminal transition
	Finish *Finish `json:"finish,omitempty" yaml:"finish,omitempty"`

	// Config contains workflow-level configuration
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// Source describes where a definition was loaded from
type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Event groups transitions triggered by the same event
type Event struct {
	Name        string        `json:"name" yaml:"name"`
	Transitions []*Transition `json:"transitions" yaml:"transitions"`
}

// Transition declares one edge of an event
type Transition struct {
	From    []string `json:"from" yaml:"from"`
	To      string   `json:"to" yaml:"to"`
	If      string   `json:"if,omitempty" yaml:"if,omitempty"`
	Before  []string `json:"before,omitempty" yaml:"before,omitempty"`
	After   []string `json:"after,omitempty" yaml:"after,omitempty"`
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Finish declares the reserved terminal transition
type Finish struct {
	Event string   `json:"event" yaml:"event"`
	To    string   `json:"to" yaml:"to"`
	If    string   `json:"if,omitempty" yaml:"if,omitempty"`
	After []string `json:"after,omitempty" yaml:"after,omitempty"`
}

// Validate performs a best-effort structural validation of the workflow.  The
// returned slice is empty when the workflow is sound; otherwise it contains
// human-readable error descriptions. Graph level rules (priorities, initial
// and terminal states) are checked when the graph is built.
func (w *Workflow) Validate() []error {
	var issues []error
	if w.Name == "" {
		issues = append(issues, fmt.Errorf("workflow name is empty"))
	}
	if len(w.States) == 0 {
		issues = append(issues, fmt.Errorf("workflow %s has no states", w.Name))
	}
	declared := map[string]bool{}
	for _, state := range w.States {
		if state == nil {
			issues = append(issues, fmt.Errorf("workflow %s has nil state", w.Name))
			continue
		}
		declared[state.Name] = true
	}
	events := map[string]bool{}
	for _, event := range w.Events {
		if event == nil || event.Name == "" {
			issues = append(issues, fmt.Errorf("workflow %s has unnamed event", w.Name))
			continue
		}
		if events[event.Name] {
			issues = append(issues, fmt.Errorf("event %s declared twice", event.Name))
		}
		events[event.Name] = true
		if len(event.Transitions) == 0 {
			issues = append(issues, fmt.Errorf("event %s has no transitions", event.Name))
		}
		for i, transition := range event.Transitions {
			if transition == nil {
				issues = append(issues, fmt.Errorf("event %s transition[%d] is nil", event.Name, i))
				continue
			}
			if len(transition.From) == 0 {
				issues = append(issues, fmt.Errorf("event %s transition[%d] has no source state", event.Name, i))
			}
			for _, from := range transition.From {
				if from != graph.AnyState && !declared[from] {
					issues = append(issues, fmt.Errorf("event %s transition[%d] refers to unknown state %s", event.Name, i, from))
				}
			}
			if !declared[transition.To] {
				issues = append(issues, fmt.Errorf("event %s transition[%d] refers to unknown state %s", event.Name, i, transition.To))
			}
		}
	}
	if w.Finish != nil {
		if events[w.Finish.Event] {
			issues = append(issues, fmt.Errorf("finish event %s is also declared as a regular event", w.Finish.Event))
		}
		if !declared[w.Finish.To] {
			issues = append(issues, fmt.Errorf("finish refers to unknown state %s", w.Finish.To))
		}
	}
	return issues
}

// Builder converts the definition into a graph builder.
func (w *Workflow) Builder() *graph.Builder {
	builder := graph.NewBuilder(w.Name)
	for _, state := range w.States {
		if state == nil {
			continue
		}
		var opts []graph.StateOption
		if state.Initial {
			opts = append(opts, graph.AsInitial())
		}
		if state.Terminal {
			opts = append(opts, graph.AsTerminal())
		}
		builder.State(state.Name, state.Priority, opts...)
	}
	builder.Before(w.Before...)
	for _, event := range w.Events {
		if event == nil {
			continue
		}
		for _, transition := range event.Transitions {
			if transition == nil {
				continue
			}
			builder.TransitionFrom(event.Name, transition.From, transition.To,
				graph.WithGuard(transition.If),
				graph.WithBefore(transition.Before...),
				graph.WithAfter(transition.After...),
				graph.WithActions(transition.Actions...))
		}
	}
	if w.Finish != nil {
		builder.Finish(w.Finish.Event, w.Finish.To, w.Finish.If, graph.WithAfter(w.Finish.After...))
	}
	return builder
}

// Graph validates the definition and builds its immutable transition graph.
func (w *Workflow) Graph() (*graph.Graph, error) {
	if issues := w.Validate(); len(issues) > 0 {
		return nil, issues[0]
	}
	return w.Builder().Build()
}

// NewWorkflow creates a new workflow with the given name
func NewWorkflow(name string) *Workflow {
	return &Workflow{Name: name}
}

// WithDescription sets the description of the workflow
func (w *Workflow) WithDescription(description string) *Workflow {
	w.Description = description
	return w
}

// WithVersion sets the version of the workflow
func (w *Workflow) WithVersion(version string) *Workflow {
	w.Version = version
	return w
}

// WithSurveyTitle sets the inspection questionnaire title
func (w *Workflow) WithSurveyTitle(title string) *Workflow {
	w.SurveyTitle = title
	return w
}

// WithConfig adds a configuration parameter to the workflow
func (w *Workflow) WithConfig(key string, value interface{}) *Workflow {
	if w.Config == nil {
		w.Config = make(map[string]interface{})
	}
	w.Config[key] = value
	return w
}

// WithState declares a state
func (w *Workflow) WithState(name string, priority int, opts ...graph.StateOption) *Workflow {
	state := &graph.State{Name: name, Priority: priority}
	for _, opt := range opts {
		opt(state)
	}
	w.States = append(w.States, state)
	return w
}

// WithBefore adds graph-wide before hooks
func (w *Workflow) WithBefore(hooks ...string) *Workflow {
	w.Before = append(w.Before, hooks...)
	return w
}

// WithFinish declares the reserved terminal transition
func (w *Workflow) WithFinish(event, to, guard string) *Workflow {
	w.Finish = &Finish{Event: event, To: to, If: guard}
	return w
}

// On returns the named event, creating it when missing
func (w *Workflow) On(name string) *Event {
	for _, event := range w.Events {
		if event.Name == name {
			return event
		}
	}
	event := &Event{Name: name}
	w.Events = append(w.Events, event)
	return event
}

// Transition appends a transition to the event
func (e *Event) Transition(from, to string) *Transition {
	transition := &Transition{From: []string{from}, To: to}
	e.Transitions = append(e.Transitions, transition)
	return transition
}

// WithIf sets the guard name
func (t *Transition) WithIf(guard string) *Transition {
	t.If = guard
	return t
}

// WithActions appends engine actions
func (t *Transition) WithActions(actions ...string) *Transition {
	t.Actions = append(t.Actions, actions...)
	return t
}

// WithAfter appends after hooks
func (t *Transition) WithAfter(hooks ...string) *Transition {
	t.After = append(t.After, hooks...)
	return t
}
