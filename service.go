package fixflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/model/graph"
	"github.com/viant/fixflow/observability"
	"github.com/viant/fixflow/runtime/engine"
	"github.com/viant/fixflow/runtime/guard"
	"github.com/viant/fixflow/runtime/inspection"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/audit"
	afstrail "github.com/viant/fixflow/service/audit/fs"
	mtrail "github.com/viant/fixflow/service/audit/memory"
	"github.com/viant/fixflow/service/dao"
	inspfs "github.com/viant/fixflow/service/dao/inspection/fs"
	imemory "github.com/viant/fixflow/service/dao/inspection/memory"
	ifs "github.com/viant/fixflow/service/dao/instance/fs"
	pmemory "github.com/viant/fixflow/service/dao/instance/memory"
	"github.com/viant/fixflow/service/dao/workflow"
	"github.com/viant/fixflow/service/event"
	"github.com/viant/fixflow/service/messaging"
	mmemory "github.com/viant/fixflow/service/messaging/memory"
	"github.com/viant/fixflow/service/meta"
	"github.com/viant/fixflow/service/survey"
	smemory "github.com/viant/fixflow/service/survey/memory"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Service wires a workflow engine with its inspection subsystem, stores and
// event publishing.
type Service struct {
	config          *Config
	metaService     *meta.Service
	metaBaseURL     string
	metaFsOptions   []storage.Option
	workflowDAO     *workflow.Service
	workflow        *model.Workflow
	workflowURL     string
	instances       dao.Service[string, instance.Instance]
	inspectionDAO   dao.Service[string, inspection.Inspection]
	trail           audit.Trail
	surveys         survey.Service
	owners          instance.Lookup
	registry        *guard.Registry
	passRequirement guard.Predicate
	actions         map[string]engine.Action
	strategies      map[string]engine.Strategy
	logger          *slog.Logger
	observers       []observability.Observer
	observer        observability.Observer
	traceExporter   sdktrace.SpanExporter
	queue           messaging.Queue[event.Event[event.Transition]]
	handlers        []func(*event.Event[event.Transition])
	publisher       *event.Publisher[event.Transition]
	listener        *event.Listener[event.Transition]
	inspections     *inspection.Service
	engine          *engine.Engine
}

// Engine returns the workflow engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Inspections returns the inspection subsystem.
func (s *Service) Inspections() *inspection.Service { return s.inspections }

// Workflow returns the bound workflow definition.
func (s *Service) Workflow() *model.Workflow { return s.workflow }

// Graph returns the transition graph.
func (s *Service) Graph() *graph.Graph { return s.engine.Graph() }

// Surveys returns the questionnaire service.
func (s *Service) Surveys() survey.Service { return s.surveys }

// Publisher returns the transition event publisher, nil when events are
// disabled.
func (s *Service) Publisher() *event.Publisher[event.Transition] { return s.publisher }

// Start registers owner with the default registry and starts an instance
// for it.
func (s *Service) Start(ctx context.Context, owner instance.Owner) (*instance.Instance, error) {
	if registry, ok := s.owners.(*instance.Registry); ok {
		registry.Put(owner)
	}
	return s.engine.Start(ctx, owner)
}

// Fire applies event to the instance, see engine.Engine.Fire.
func (s *Service) Fire(ctx context.Context, id, eventName string, args instance.Args) (*engine.Result, error) {
	return s.engine.Fire(ctx, id, eventName, args)
}

// Close stops the event listener.
func (s *Service) Close() error {
	if s.listener != nil {
		s.listener.Stop()
	}
	return nil
}

func (s *Service) init(ctx context.Context, options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.config.Events.Queue == (mmemory.Config{}) {
		s.config.Events.Queue = mmemory.DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := s.initTracing(); err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	if err := s.ensureBaseSetup(ctx); err != nil {
		return err
	}
	g, err := s.workflow.Graph()
	if err != nil {
		return err
	}
	missing, err := s.missingSurvey()
	if err != nil {
		return fmt.Errorf("workflow %s: %w", s.workflow.Name, err)
	}
	s.inspections = inspection.New(s.inspectionDAO, s.trail, s.surveys,
		inspection.WithSurveyTitle(s.surveyTitle()),
		inspection.WithInspectedState(s.config.Inspection.State),
		inspection.WithMissingSurvey(missing),
		inspection.WithWorkflowType(s.workflow.Name),
		inspection.WithObserver(s.observer))
	s.registerInspection(g)
	engineOptions := []engine.Option{
		engine.WithRegistry(s.registry),
		engine.WithObserver(s.observer),
		engine.WithTracing(s.config.Tracing.Enabled),
	}
	for name, action := range s.actions {
		engineOptions = append(engineOptions, engine.WithAction(name, action))
	}
	for state, strategy := range s.strategies {
		engineOptions = append(engineOptions, engine.WithStrategy(state, strategy))
	}
	if s.config.Events.Enabled {
		if s.queue == nil {
			s.queue = mmemory.NewQueue[event.Event[event.Transition]](s.config.Events.Queue)
		}
		s.publisher = event.NewPublisher[event.Transition](s.queue)
		engineOptions = append(engineOptions, engine.WithPublisher(s.publisher))
	}
	if s.engine, err = engine.New(g, s.instances, s.trail, s.owners, engineOptions...); err != nil {
		return err
	}
	if s.publisher != nil && len(s.handlers) > 0 {
		s.listener = event.NewListener[event.Transition](s.publisher, s.dispatch, s.logger)
		s.listener.Start()
	}
	return nil
}

func (s *Service) dispatch(evt *event.Event[event.Transition]) {
	for _, handler := range s.handlers {
		handler(evt)
	}
}

// registerInspection binds the inspection subsystem to the engine unless
// the caller supplied its own bindings.
func (s *Service) registerInspection(g *graph.Graph) {
	inspections := s.inspections
	guardName := model.GuardPassRequirement
	if s.workflow.Finish != nil && s.workflow.Finish.If != "" {
		guardName = s.workflow.Finish.If
	}
	if _, ok := s.registry.Predicate(guardName); !ok {
		predicate := s.passRequirement
		if predicate == nil {
			predicate = func(ctx context.Context, c *guard.Context) (bool, error) {
				return inspections.AnyPass(ctx, c.Instance.ID)
			}
		}
		s.registry.RegisterPredicate(guardName, predicate)
	}
	if _, ok := s.actions[model.ActionStartInspection]; !ok {
		s.actions[model.ActionStartInspection] = func(ctx context.Context, c *engine.ActionContext) (instance.Undo, error) {
			return inspections.Start(ctx, c.Instance, c.Args, c.At)
		}
	}
	if _, ok := s.actions[model.ActionResumeInspection]; !ok {
		s.actions[model.ActionResumeInspection] = func(ctx context.Context, c *engine.ActionContext) (instance.Undo, error) {
			return inspections.Resume(ctx, c.Instance, c.Args, c.At)
		}
	}
	if state := s.config.Inspection.State; g.Has(state) {
		if _, ok := s.strategies[state]; !ok {
			s.strategies[state] = engine.Strategy{
				ActionHash: func(ctx context.Context, inst *instance.Instance) (engine.Payload, error) {
					payload, err := inspections.ActionHash(ctx, inst)
					if err != nil || payload == nil {
						return nil, err
					}
					return engine.Payload(payload), nil
				},
				UserCan: inspections.UserCan,
			}
		}
	}
	for _, terminal := range g.TerminalStates() {
		if _, ok := s.strategies[terminal.Name]; !ok {
			s.strategies[terminal.Name] = engine.FinishStrategy()
		}
	}
}

func (s *Service) surveyTitle() string {
	if title := s.config.Inspection.SurveyTitle; title != "" {
		return title
	}
	if s.workflow.SurveyTitle != "" {
		return s.workflow.SurveyTitle
	}
	return model.DefaultSurveyTitle
}

// missingSurvey resolves the policy from config, then from the workflow
// definition, defaulting to skip.
func (s *Service) missingSurvey() (inspection.MissingSurvey, error) {
	if policy := s.config.Inspection.MissingSurvey; policy != "" {
		return policy, nil
	}
	value, ok := s.workflow.Config["missingSurvey"]
	if !ok {
		return inspection.MissingSurveySkip, nil
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("config.missingSurvey: expected string, got %T", value)
	}
	policy := inspection.MissingSurvey(text)
	if err := policy.Validate(); err != nil {
		return "", err
	}
	return policy, nil
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	if s.logger == nil {
		level, _ := s.config.Log.SlogLevel()
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	s.observer = observability.NewMultiObserver(append([]observability.Observer{observability.NewSlogObserver(s.logger)}, s.observers...)...)
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	if s.workflowDAO == nil {
		s.workflowDAO = workflow.New(workflow.WithMetaService(s.metaService))
	}
	if s.workflowURL == "" {
		s.workflowURL = s.config.Workflow.URL
	}
	if s.workflow == nil && s.workflowURL != "" {
		loaded, err := s.workflowDAO.Load(ctx, s.workflowURL)
		if err != nil {
			return err
		}
		s.workflow = loaded
	}
	if s.workflow == nil {
		s.workflow = model.Repair()
	}
	if s.config.Inspection.State == "" {
		s.config.Inspection.State = model.StateInspected
	}
	if err := s.ensureStores(); err != nil {
		return err
	}
	if s.surveys == nil {
		s.surveys = smemory.New()
	}
	if s.owners == nil {
		s.owners = instance.NewRegistry()
	}
	return nil
}

func (s *Service) ensureStores() error {
	fs := afs.New()
	if s.instances == nil {
		switch s.config.Store.Kind {
		case StoreFS:
			instances, err := ifs.New(s.config.Store.InstanceURL, ifs.WithFS(fs), ifs.WithLogger(s.logger))
			if err != nil {
				return err
			}
			s.instances = instances
		default:
			s.instances = pmemory.New()
		}
	}
	if s.trail == nil {
		switch s.config.Store.Kind {
		case StoreFS:
			trail, err := afstrail.New(s.config.Store.AuditURL, fs)
			if err != nil {
				return err
			}
			s.trail = trail
		default:
			s.trail = mtrail.New()
		}
	}
	if s.inspectionDAO == nil {
		switch s.config.Store.Kind {
		case StoreFS:
			inspections, err := inspfs.New(s.config.Store.InspectionURL, inspfs.WithFS(fs), inspfs.WithLogger(s.logger))
			if err != nil {
				return err
			}
			s.inspectionDAO = inspections
		default:
			s.inspectionDAO = imemory.New()
		}
	}
	return nil
}

// New creates a service from DefaultConfig and options.
func New(ctx context.Context, options ...Option) (*Service, error) {
	return NewFromConfig(ctx, DefaultConfig(), options...)
}

// NewFromConfig creates a service from config; options are applied on top.
func NewFromConfig(ctx context.Context, config *Config, options ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	ret := &Service{
		config:     &cfg,
		registry:   guard.NewRegistry(),
		actions:    map[string]engine.Action{},
		strategies: map[string]engine.Strategy{},
	}
	if err := ret.init(ctx, options); err != nil {
		return nil, err
	}
	return ret, nil
}
