package fixflow

import (
	"log/slog"

	"github.com/viant/afs/storage"
	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/observability"
	"github.com/viant/fixflow/runtime/engine"
	"github.com/viant/fixflow/runtime/guard"
	"github.com/viant/fixflow/runtime/inspection"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/audit"
	"github.com/viant/fixflow/service/dao"
	"github.com/viant/fixflow/service/event"
	"github.com/viant/fixflow/service/messaging"
	"github.com/viant/fixflow/service/meta"
	"github.com/viant/fixflow/service/survey"
	"github.com/viant/fixflow/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the Service.
type Option func(s *Service)

// WithWorkflow sets the workflow definition; defaults to model.Repair().
func WithWorkflow(workflow *model.Workflow) Option {
	return func(s *Service) { s.workflow = workflow }
}

// WithWorkflowURL loads the workflow definition through the meta service.
func WithWorkflowURL(URL string) Option {
	return func(s *Service) { s.workflowURL = URL }
}

// WithMetaService sets the meta service
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) { s.metaService = service }
}

// WithMetaBaseURL sets the meta base URL
func WithMetaBaseURL(url string) Option {
	return func(s *Service) { s.metaBaseURL = url }
}

// WithMetaFsOptions with meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) { s.metaFsOptions = options }
}

// WithInstanceDAO sets the instance store
func WithInstanceDAO(dao dao.Service[string, instance.Instance]) Option {
	return func(s *Service) { s.instances = dao }
}

// WithInspectionDAO sets the inspection store
func WithInspectionDAO(dao dao.Service[string, inspection.Inspection]) Option {
	return func(s *Service) { s.inspectionDAO = dao }
}

// WithAuditTrail sets the audit trail
func WithAuditTrail(trail audit.Trail) Option {
	return func(s *Service) { s.trail = trail }
}

// WithSurveyService sets the questionnaire service
func WithSurveyService(surveys survey.Service) Option {
	return func(s *Service) { s.surveys = surveys }
}

// WithOwnerLookup sets the owner resolver; defaults to an instance.Registry
// filled by Start.
func WithOwnerLookup(owners instance.Lookup) Option {
	return func(s *Service) { s.owners = owners }
}

// WithPassRequirement replaces the finish guard; defaults to "any inspection
// passed".
func WithPassRequirement(predicate guard.Predicate) Option {
	return func(s *Service) { s.passRequirement = predicate }
}

// WithPredicate registers a named guard predicate.
func WithPredicate(name string, predicate guard.Predicate) Option {
	return func(s *Service) { s.registry.RegisterPredicate(name, predicate) }
}

// WithHook registers a named before hook.
func WithHook(name string, hook guard.Hook) Option {
	return func(s *Service) { s.registry.RegisterHook(name, hook) }
}

// WithAfterHook registers a named after hook.
func WithAfterHook(name string, hook guard.AfterHook) Option {
	return func(s *Service) { s.registry.RegisterAfter(name, hook) }
}

// WithAction registers a named edge action.
func WithAction(name string, action engine.Action) Option {
	return func(s *Service) { s.actions[name] = action }
}

// WithStrategy binds per-state behaviour, overriding the built-in bindings.
func WithStrategy(state string, strategy engine.Strategy) Option {
	return func(s *Service) { s.strategies[state] = strategy }
}

// WithSurveyTitle sets the questionnaire used by inspections.
func WithSurveyTitle(title string) Option {
	return func(s *Service) { s.config.Inspection.SurveyTitle = title }
}

// WithMissingSurvey sets the missing questionnaire policy.
func WithMissingSurvey(policy inspection.MissingSurvey) Option {
	return func(s *Service) { s.config.Inspection.MissingSurvey = policy }
}

// WithLogger sets the logger used by the default observer.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithObserver adds an observability sink.
func WithObserver(observer observability.Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, observer) }
}

// WithQueue sets the transition event queue and enables publishing.
func WithQueue(queue messaging.Queue[event.Event[event.Transition]]) Option {
	return func(s *Service) {
		s.queue = queue
		s.config.Events.Enabled = true
	}
}

// WithEventListener consumes published transition events on a background
// goroutine until Close.
func WithEventListener(listener func(*event.Event[event.Transition])) Option {
	return func(s *Service) {
		s.handlers = append(s.handlers, listener)
		s.config.Events.Enabled = true
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.config.Tracing = TracingConfig{Enabled: true, ServiceName: serviceName, Version: serviceVersion, OutputFile: outputFile}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for example
// an OTLP exporter or the in-memory one used by tests.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.config.Tracing = TracingConfig{Enabled: true, ServiceName: serviceName, Version: serviceVersion}
		s.traceExporter = exporter
	}
}

func (s *Service) initTracing() error {
	if !s.config.Tracing.Enabled {
		return nil
	}
	t := s.config.Tracing
	if s.traceExporter != nil {
		return tracing.InitWithExporter(t.ServiceName, t.Version, s.traceExporter)
	}
	return tracing.Init(t.ServiceName, t.Version, t.OutputFile)
}
