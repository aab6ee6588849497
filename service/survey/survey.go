// Package survey defines the questionnaire collaborator used by inspections.
package survey

import (
	"context"
	"errors"
	"time"
)

// ErrResponseSetNotFound is returned for unknown access codes.
var ErrResponseSetNotFound = errors.New("survey: response set not found")

// Definition is a questionnaire template.
type Definition struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Code  string `json:"code" yaml:"code"`
}

// ResponseSet is one participant's answers to a Definition, bound to the
// subject under inspection.
type ResponseSet struct {
	ID                string    `json:"id"`
	AccessCode        string    `json:"accessCode"`
	SurveyID          string    `json:"surveyId"`
	SurveyCode        string    `json:"surveyCode"`
	UserID            string    `json:"userId"`
	SubjectType       string    `json:"subjectType"`
	SubjectID         string    `json:"subjectId"`
	WorkflowType      string    `json:"workflowType"`
	WorkflowID        string    `json:"workflowId"`
	CreatedAt         time.Time `json:"createdAt"`
	MandatoryComplete bool      `json:"mandatoryComplete"`
	Correct           bool      `json:"correct"`
}

// Request describes a response set to create.
type Request struct {
	Definition   *Definition
	UserID       string
	SubjectType  string
	SubjectID    string
	WorkflowType string
	WorkflowID   string
}

// Status carries the externally computed completion signals.
type Status struct {
	MandatoryComplete bool
	Correct           bool
}

// Service is the external questionnaire system.
type Service interface {
	// FindDefinition returns the definition titled title, nil when none exists.
	FindDefinition(ctx context.Context, title string) (*Definition, error)
	// CreateResponseSet opens a new response set with a fresh access code.
	CreateResponseSet(ctx context.Context, request *Request) (*ResponseSet, error)
	// Status reports completion signals of the response set behind accessCode.
	Status(ctx context.Context, accessCode string) (*Status, error)
}
