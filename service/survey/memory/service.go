package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/fixflow/internal/clock"
	"github.com/viant/fixflow/internal/idgen"
	"github.com/viant/fixflow/service/survey"
)

// Service is an in-memory survey.Service.
type Service struct {
	mux          sync.RWMutex
	definitions  map[string]*survey.Definition
	responseSets map[string]*survey.ResponseSet
}

var _ survey.Service = (*Service)(nil)

// AddDefinition registers a definition under its title.
func (s *Service) AddDefinition(definition *survey.Definition) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if definition.ID == "" {
		definition.ID = idgen.New()
	}
	s.definitions[definition.Title] = definition
}

func (s *Service) FindDefinition(_ context.Context, title string) (*survey.Definition, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	definition, ok := s.definitions[title]
	if !ok {
		return nil, nil
	}
	ret := *definition
	return &ret, nil
}

func (s *Service) CreateResponseSet(_ context.Context, request *survey.Request) (*survey.ResponseSet, error) {
	if request == nil || request.Definition == nil {
		return nil, errors.New("survey: definition is required")
	}
	if request.UserID == "" {
		return nil, errors.New("survey: user is required")
	}
	ret := &survey.ResponseSet{
		ID:           idgen.New(),
		AccessCode:   idgen.AccessCode(),
		SurveyID:     request.Definition.ID,
		SurveyCode:   request.Definition.Code,
		UserID:       request.UserID,
		SubjectType:  request.SubjectType,
		SubjectID:    request.SubjectID,
		WorkflowType: request.WorkflowType,
		WorkflowID:   request.WorkflowID,
		CreatedAt:    clock.Now(),
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.responseSets[ret.AccessCode]; ok {
		return nil, fmt.Errorf("survey: duplicate access code %s", ret.AccessCode)
	}
	s.responseSets[ret.AccessCode] = ret
	clone := *ret
	return &clone, nil
}

func (s *Service) Status(_ context.Context, accessCode string) (*survey.Status, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	responseSet, ok := s.responseSets[accessCode]
	if !ok {
		return nil, survey.ErrResponseSetNotFound
	}
	return &survey.Status{MandatoryComplete: responseSet.MandatoryComplete, Correct: responseSet.Correct}, nil
}

// ResponseSet returns a copy of the response set behind accessCode.
func (s *Service) ResponseSet(accessCode string) (*survey.ResponseSet, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	responseSet, ok := s.responseSets[accessCode]
	if !ok {
		return nil, false
	}
	ret := *responseSet
	return &ret, true
}

// Answer records the completion signals of a response set.
func (s *Service) Answer(accessCode string, mandatoryComplete, correct bool) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	responseSet, ok := s.responseSets[accessCode]
	if !ok {
		return survey.ErrResponseSetNotFound
	}
	responseSet.MandatoryComplete = mandatoryComplete
	responseSet.Correct = correct
	return nil
}

// New creates an empty service seeded with definitions.
func New(definitions ...*survey.Definition) *Service {
	ret := &Service{
		definitions:  map[string]*survey.Definition{},
		responseSets: map[string]*survey.ResponseSet{},
	}
	for _, definition := range definitions {
		ret.AddDefinition(definition)
	}
	return ret
}
