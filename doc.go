// Package fixflow provides a repair workflow and state engine.
//
// A workflow instance belongs to an owner (a repair project, a bike, ...)
// and moves through states declared in a transition graph. Every transition
// is guarded, appended to an audit trail and may trigger inspections backed
// by an external questionnaire service. The root package wires the pieces:
//
//   - engine: guarded transitions, step sequence, action hash
//   - inspection: per-user inspections and their validity
//   - audit: append-only state entry records
//   - event: transition events published to a queue
//
// Typical usage:
//
//	srv, _ := fixflow.New(ctx, fixflow.WithSurveyService(surveys))
//	inst, _ := srv.Start(ctx, owner)
//	result, err := srv.Fire(ctx, inst.ID, "start_inspection", instance.Args{"user": "u1"})
//
// Workflows may also be loaded from YAML with WithWorkflowURL or through
// Config.Workflow.URL.
package fixflow
