package inspection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/fixflow/internal/clock"
	"github.com/viant/fixflow/internal/idgen"
	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/observability"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/audit"
	"github.com/viant/fixflow/service/dao"
	"github.com/viant/fixflow/service/survey"
	"golang.org/x/sync/errgroup"
)

// ErrMissingSurveyDefinition is returned under MissingSurveyReject when the
// configured questionnaire does not exist.
var ErrMissingSurveyDefinition = errors.New("inspection: missing survey definition")

// TargetInspectionEdit is the action hash target of the inspected state.
const TargetInspectionEdit = "inspection_edit"

const source = "fixflow.inspection"

// Service manages inspections of workflow instances.
type Service struct {
	store        dao.Service[string, Inspection]
	trail        audit.Trail
	surveys      survey.Service
	observer     observability.Observer
	surveyTitle  string
	state        string
	workflowType string
	missing      MissingSurvey
}

// Find returns the inspection of userID, nil when none exists.
func (s *Service) Find(ctx context.Context, instanceID, userID string) (*Inspection, error) {
	found, err := s.store.List(ctx, dao.NewParameter(ParamInstanceID, instanceID), dao.NewParameter(ParamUserID, userID))
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// List returns all inspections of an instance; completion flags are
// refreshed concurrently.
func (s *Service) List(ctx context.Context, instanceID string) ([]*Inspection, error) {
	found, err := s.store.List(ctx, dao.NewParameter(ParamInstanceID, instanceID))
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, insp := range found {
		insp := insp
		g.Go(func() error { return s.Refresh(gctx, insp) })
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

// Refresh pulls completion signals from the survey service.
func (s *Service) Refresh(ctx context.Context, insp *Inspection) error {
	status, err := s.surveys.Status(ctx, insp.AccessCode)
	if errors.Is(err, survey.ErrResponseSetNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspection %s: %w", insp.ID, err)
	}
	if insp.Completed == status.MandatoryComplete && insp.Correct == status.Correct {
		return nil
	}
	insp.Completed = status.MandatoryComplete
	insp.Correct = status.Correct
	return s.store.Save(ctx, insp)
}

// InspectedAt returns when the instance most recently entered the inspected
// state, nil when it never did.
func (s *Service) InspectedAt(ctx context.Context, instanceID string) (*time.Time, error) {
	latest, err := s.trail.Latest(ctx, instanceID, s.state)
	if err != nil || latest == nil {
		return nil, err
	}
	return &latest.EnteredAt, nil
}

// IsValid reports whether insp was started no earlier than the latest entry
// into the inspected state.
func (s *Service) IsValid(ctx context.Context, insp *Inspection) (bool, error) {
	inspectedAt, err := s.InspectedAt(ctx, insp.InstanceID)
	if err != nil {
		return false, err
	}
	if inspectedAt == nil {
		return true, nil
	}
	return !inspectedAt.After(insp.StartedAt), nil
}

// HasValid reports whether userID holds a valid inspection.
func (s *Service) HasValid(ctx context.Context, instanceID, userID string) (bool, error) {
	insp, err := s.Find(ctx, instanceID, userID)
	if err != nil || insp == nil {
		return false, err
	}
	return s.IsValid(ctx, insp)
}

// Start replaces the inspection of the acting user with a new one started at
// at. The returned undo reverts every change.
func (s *Service) Start(ctx context.Context, inst *instance.Instance, args instance.Args, at time.Time) (instance.Undo, error) {
	userID := args.UserID()
	if userID == "" {
		return nil, nil
	}
	definition, err := s.surveys.FindDefinition(ctx, s.surveyTitle)
	if err != nil {
		return nil, fmt.Errorf("survey %s: %w", s.surveyTitle, err)
	}
	if definition == nil && s.missing == MissingSurveyReject {
		return nil, fmt.Errorf("%w: %s", ErrMissingSurveyDefinition, s.surveyTitle)
	}
	var undos []instance.Undo
	undo := func(ctx context.Context) error { return instance.Undos(ctx, undos) }

	previous, err := s.Find(ctx, inst.ID, userID)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		if err = s.store.Delete(ctx, previous.ID); err != nil {
			return nil, err
		}
		undos = append(undos, func(ctx context.Context) error { return s.store.Save(ctx, previous) })
		s.notify(ctx, observability.EventInspectionReplaced, observability.LevelInfo, inst, userID, previous.AccessCode)
	}
	if definition == nil {
		s.notify(ctx, observability.EventSurveyMissing, observability.LevelWarning, inst, userID, "")
		return undo, nil
	}
	responseSet, err := s.surveys.CreateResponseSet(ctx, &survey.Request{
		Definition:   definition,
		UserID:       userID,
		SubjectType:  inst.Owner.Type,
		SubjectID:    inst.Owner.ID,
		WorkflowType: s.workflowType,
		WorkflowID:   inst.ID,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("survey %s: %w", s.surveyTitle, err), undo(ctx))
	}
	insp := &Inspection{
		ID:         idgen.New(),
		InstanceID: inst.ID,
		Owner:      inst.Owner,
		UserID:     userID,
		AccessCode: responseSet.AccessCode,
		SurveyCode: definition.Code,
		StartedAt:  at,
	}
	if err = s.store.Save(ctx, insp); err != nil {
		return nil, errors.Join(err, undo(ctx))
	}
	undos = append(undos, func(ctx context.Context) error { return s.store.Delete(ctx, insp.ID) })
	undos = append(undos, s.setAccessCode(inst, insp.AccessCode))
	s.notify(ctx, observability.EventInspectionStarted, observability.LevelInfo, inst, userID, insp.AccessCode)
	return undo, nil
}

// Resume points the instance at the existing inspection of the acting user,
// starting a new one when none exists.
func (s *Service) Resume(ctx context.Context, inst *instance.Instance, args instance.Args, at time.Time) (instance.Undo, error) {
	userID := args.UserID()
	if userID == "" {
		return nil, nil
	}
	existing, err := s.Find(ctx, inst.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.Start(ctx, inst, args, at)
	}
	undo := s.setAccessCode(inst, existing.AccessCode)
	s.notify(ctx, observability.EventInspectionResumed, observability.LevelInfo, inst, userID, existing.AccessCode)
	return undo, nil
}

func (s *Service) setAccessCode(inst *instance.Instance, code string) instance.Undo {
	previous := inst.AccessCode
	inst.AccessCode = code
	return func(context.Context) error {
		inst.AccessCode = previous
		return nil
	}
}

// AnyComplete holds when any inspection of the instance is complete.
func (s *Service) AnyComplete(ctx context.Context, instanceID string) (bool, error) {
	return s.any(ctx, instanceID, (*Inspection).Complete)
}

// AnyPass holds when any inspection of the instance passed.
func (s *Service) AnyPass(ctx context.Context, instanceID string) (bool, error) {
	return s.any(ctx, instanceID, (*Inspection).Pass)
}

// AnyFail holds when any inspection of the instance failed.
func (s *Service) AnyFail(ctx context.Context, instanceID string) (bool, error) {
	return s.any(ctx, instanceID, (*Inspection).Fail)
}

func (s *Service) any(ctx context.Context, instanceID string, predicate func(*Inspection) bool) (bool, error) {
	inspections, err := s.List(ctx, instanceID)
	if err != nil {
		return false, err
	}
	for _, insp := range inspections {
		if predicate(insp) {
			return true, nil
		}
	}
	return false, nil
}

// UserCan decides whether userID may perform action while the instance is
// inspected: starting requires no valid inspection, resuming requires one.
func (s *Service) UserCan(ctx context.Context, inst *instance.Instance, userID, action string) (bool, error) {
	if inst.State != s.state {
		return true, nil
	}
	switch action {
	case model.ActionStartInspection:
		valid, err := s.HasValid(ctx, inst.ID, userID)
		return !valid, err
	case model.ActionResumeInspection:
		return s.HasValid(ctx, inst.ID, userID)
	}
	return true, nil
}

// ActionHash routes callers to the inspection the instance points at.
func (s *Service) ActionHash(ctx context.Context, inst *instance.Instance) (map[string]interface{}, error) {
	if inst.AccessCode == "" {
		return nil, nil
	}
	found, err := s.store.List(ctx, dao.NewParameter(ParamInstanceID, inst.ID), dao.NewParameter(ParamAccessCode, inst.AccessCode))
	if err != nil {
		return nil, err
	}
	surveyCode := ""
	if len(found) > 0 {
		surveyCode = found[0].SurveyCode
	}
	return map[string]interface{}{
		"target": TargetInspectionEdit,
		"survey": surveyCode,
		"code":   inst.AccessCode,
	}, nil
}

func (s *Service) notify(ctx context.Context, eventType observability.EventType, level observability.Level, inst *instance.Instance, userID, accessCode string) {
	data := map[string]any{"instance": inst.ID, "user": userID, "survey": s.surveyTitle}
	if accessCode != "" {
		data["accessCode"] = accessCode
	}
	s.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: clock.Now(),
		Source:    source,
		Data:      data,
	})
}

// New creates an inspection service.
func New(store dao.Service[string, Inspection], trail audit.Trail, surveys survey.Service, opts ...Option) *Service {
	ret := &Service{
		store:       store,
		trail:       trail,
		surveys:     surveys,
		observer:    observability.NoOpObserver{},
		surveyTitle: model.DefaultSurveyTitle,
		state:       model.StateInspected,
		missing:     MissingSurveySkip,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
