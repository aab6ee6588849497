package model

import "github.com/viant/fixflow/model/graph"

// Names used by the built-in repair workflow.
const (
	StateReadyToInspect = "ready_to_inspect"
	StateInspected      = "inspected"
	StateDone           = "done"

	EventStartInspection  = "start_inspection"
	EventResumeInspection = "resume_inspection"
	EventFinishProject    = "finish_project"

	GuardPassRequirement = "pass_req"
	HookOwnerMustBeOpen  = "owner_must_be_open"
	HookCloseOwner       = "close_owner"

	ActionStartInspection  = "start_inspection"
	ActionResumeInspection = "resume_inspection"
)

// DefaultSurveyTitle is the questionnaire used when a definition names none.
const DefaultSurveyTitle = "Inspection"

// Repair returns the built-in inspection workflow: a project waits for an
// inspection, may be re-inspected any number of times and finishes once the
// pass requirement holds.
func Repair() *Workflow {
	w := NewWorkflow("repair").
		WithDescription("repair project with per-user inspections").
		WithSurveyTitle(DefaultSurveyTitle).
		WithState(StateReadyToInspect, 1, graph.AsInitial()).
		WithState(StateInspected, 2).
		WithState(StateDone, 99, graph.AsTerminal()).
		WithBefore(HookOwnerMustBeOpen).
		WithFinish(EventFinishProject, StateDone, GuardPassRequirement)
	start := w.On(EventStartInspection)
	start.Transition(StateReadyToInspect, StateInspected).WithActions(ActionStartInspection)
	start.Transition(StateInspected, StateInspected).WithActions(ActionStartInspection)
	w.On(EventResumeInspection).Transition(StateInspected, StateInspected).WithActions(ActionResumeInspection)
	return w
}
