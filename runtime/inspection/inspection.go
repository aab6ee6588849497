// Package inspection implements the per-participant inspection sub-workflow
// spawned by the "inspected" state.
package inspection

import (
	"time"

	"github.com/viant/fixflow/runtime/instance"
)

// Filterable parameter names.
const (
	ParamInstanceID = "InstanceID"
	ParamUserID     = "UserID"
	ParamAccessCode = "AccessCode"
)

// Inspection is one participant's questionnaire attached to an instance.
// At most one exists per (instance, user).
type Inspection struct {
	ID         string       `json:"id"`
	InstanceID string       `json:"instanceId"`
	Owner      instance.Ref `json:"owner"`
	UserID     string       `json:"userId"`
	AccessCode string       `json:"accessCode"`
	SurveyCode string       `json:"surveyCode,omitempty"`
	StartedAt  time.Time    `json:"startedAt"`
	Completed  bool         `json:"completed"`
	Correct    bool         `json:"correct"`
}

// Complete reports whether all mandatory questions were answered.
func (i *Inspection) Complete() bool { return i.Completed }

// Pass holds for a complete and correct inspection.
func (i *Inspection) Pass() bool { return i.Completed && i.Correct }

// Fail holds for a complete but incorrect inspection.
func (i *Inspection) Fail() bool { return i.Completed && !i.Correct }

// Field exposes filterable attributes.
func (i *Inspection) Field(name string) (string, bool) {
	switch name {
	case ParamInstanceID:
		return i.InstanceID, true
	case ParamUserID:
		return i.UserID, true
	case ParamAccessCode:
		return i.AccessCode, true
	}
	return "", false
}
