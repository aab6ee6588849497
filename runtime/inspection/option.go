package inspection

import (
	"fmt"

	"github.com/viant/fixflow/observability"
)

// MissingSurvey decides what happens when no questionnaire definition exists.
type MissingSurvey string

const (
	// MissingSurveySkip lets the transition proceed without an inspection.
	MissingSurveySkip MissingSurvey = "skip"
	// MissingSurveyReject aborts the transition.
	MissingSurveyReject MissingSurvey = "reject"
)

// Validate checks the policy value.
func (m MissingSurvey) Validate() error {
	switch m {
	case MissingSurveySkip, MissingSurveyReject:
		return nil
	}
	return fmt.Errorf("inspection: unsupported missing survey policy %q", m)
}

// Option customises the Service.
type Option func(*Service)

// WithSurveyTitle sets the questionnaire title used for new inspections.
func WithSurveyTitle(title string) Option {
	return func(s *Service) { s.surveyTitle = title }
}

// WithInspectedState sets the state whose entries invalidate inspections.
func WithInspectedState(state string) Option {
	return func(s *Service) { s.state = state }
}

// WithMissingSurvey sets the missing definition policy.
func WithMissingSurvey(policy MissingSurvey) Option {
	return func(s *Service) { s.missing = policy }
}

// WithWorkflowType sets the workflow type recorded on response sets.
func WithWorkflowType(workflowType string) Option {
	return func(s *Service) { s.workflowType = workflowType }
}

// WithObserver sets the observability sink.
func WithObserver(observer observability.Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}
