package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/fixflow/internal/yml"
	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/model/graph"
	"github.com/viant/fixflow/service/meta"
	"gopkg.in/yaml.v3"
)

// Service loads declarative workflow definitions and caches them by URL.
type Service struct {
	metaService *meta.Service
	mux         sync.RWMutex
	cache       map[string]*model.Workflow
}

// DecodeYAML decodes a workflow from YAML
func (s *Service) DecodeYAML(encoded []byte) (*model.Workflow, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	return s.ParseWorkflow("", &node)
}

// Load loads a workflow from YAML at the specified URL
func (s *Service) Load(ctx context.Context, URL string) (*model.Workflow, error) {
	if ext := filepath.Ext(URL); ext == "" {
		URL += ".yaml"
	}
	s.mux.RLock()
	cached, ok := s.cache[URL]
	s.mux.RUnlock()
	if ok {
		return cached, nil
	}
	var node yaml.Node
	if err := s.metaService.Load(ctx, URL, &node); err != nil {
		return nil, fmt.Errorf("failed to load workflow from %s: %w", URL, err)
	}
	workflow, err := s.ParseWorkflow(URL, &node)
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	s.cache[URL] = workflow
	s.mux.Unlock()
	return workflow, nil
}

// Refresh drops the cached definition of URL.
func (s *Service) Refresh(URL string) {
	s.mux.Lock()
	delete(s.cache, URL)
	s.mux.Unlock()
}

// ParseWorkflow converts a YAML document into a validated workflow.
func (s *Service) ParseWorkflow(URL string, node *yaml.Node) (*model.Workflow, error) {
	workflow := &model.Workflow{
		Source: &model.Source{URL: URL},
		Name:   getWorkflowNameFromURL(URL),
	}
	root := (*yml.Node)(node).Root()
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse workflow from %s: document should be a mapping", URL)
	}
	if err := parseWorkflow(root, workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow from %s: %w", URL, err)
	}
	if workflow.SurveyTitle == "" {
		workflow.SurveyTitle = model.DefaultSurveyTitle
	}
	if issues := workflow.Validate(); len(issues) > 0 {
		return nil, issues[0]
	}
	return workflow, nil
}

// getWorkflowNameFromURL extracts workflow name from URL (file name without extension)
func getWorkflowNameFromURL(URL string) string {
	if URL == "" {
		return ""
	}
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseWorkflow(node *yml.Node, workflow *model.Workflow) error {
	return node.Pairs(func(key string, valueNode *yml.Node) error {
		var err error
		switch strings.ToLower(key) {
		case "name":
			workflow.Name, err = valueNode.String()
		case "description":
			workflow.Description, err = valueNode.String()
		case "version":
			workflow.Version, err = valueNode.String()
		case "surveytitle":
			workflow.SurveyTitle, err = valueNode.String()
		case "before":
			workflow.Before, err = valueNode.Strings()
		case "states":
			workflow.States, err = parseStates(valueNode)
		case "events":
			workflow.Events, err = parseEvents(valueNode)
		case "finish":
			workflow.Finish, err = parseFinish(valueNode)
		case "config":
			if config, ok := valueNode.Interface().(map[string]interface{}); ok {
				workflow.Config = config
			}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

// parseStates accepts a mapping of state name to attributes.
func parseStates(node *yml.Node) ([]*graph.State, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("states node should be a mapping")
	}
	var states []*graph.State
	err := node.Pairs(func(name string, stateNode *yml.Node) error {
		state := &graph.State{Name: name}
		if stateNode.Kind != yaml.MappingNode {
			return fmt.Errorf("state %s should be a mapping", name)
		}
		if err := stateNode.Pairs(func(key string, valueNode *yml.Node) error {
			var err error
			switch strings.ToLower(key) {
			case "priority":
				state.Priority, err = valueNode.Int()
			case "initial":
				state.Initial, err = valueNode.Bool()
			case "terminal":
				state.Terminal, err = valueNode.Bool()
			}
			return err
		}); err != nil {
			return fmt.Errorf("state %s: %w", name, err)
		}
		states = append(states, state)
		return nil
	})
	return states, err
}

// parseEvents accepts, per event, a single transition mapping or a sequence
// of them.
func parseEvents(node *yml.Node) ([]*model.Event, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("events node should be a mapping")
	}
	var events []*model.Event
	err := node.Pairs(func(name string, eventNode *yml.Node) error {
		event := &model.Event{Name: name}
		switch eventNode.Kind {
		case yaml.MappingNode:
			transition, err := parseTransition(eventNode)
			if err != nil {
				return fmt.Errorf("event %s: %w", name, err)
			}
			event.Transitions = append(event.Transitions, transition)
		case yaml.SequenceNode:
			if err := eventNode.Items(func(_ int, item *yml.Node) error {
				transition, err := parseTransition(item)
				if err != nil {
					return err
				}
				event.Transitions = append(event.Transitions, transition)
				return nil
			}); err != nil {
				return fmt.Errorf("event %s: %w", name, err)
			}
		default:
			return fmt.Errorf("event %s should be a mapping or a sequence", name)
		}
		events = append(events, event)
		return nil
	})
	return events, err
}

func parseTransition(node *yml.Node) (*model.Transition, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("transition node should be a mapping")
	}
	transition := &model.Transition{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		var err error
		switch strings.ToLower(key) {
		case "from":
			transition.From, err = valueNode.Strings()
		case "to":
			transition.To, err = valueNode.String()
		case "if":
			transition.If, err = valueNode.String()
		case "before":
			transition.Before, err = valueNode.Strings()
		case "after":
			transition.After, err = valueNode.Strings()
		case "actions":
			transition.Actions, err = valueNode.Strings()
		}
		return err
	})
	return transition, err
}

func parseFinish(node *yml.Node) (*model.Finish, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("finish node should be a mapping")
	}
	finish := &model.Finish{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		var err error
		switch strings.ToLower(key) {
		case "event":
			finish.Event, err = valueNode.String()
		case "to":
			finish.To, err = valueNode.String()
		case "if":
			finish.If, err = valueNode.String()
		case "after":
			finish.After, err = valueNode.Strings()
		}
		return err
	})
	return finish, err
}

// Option customises the Service.
type Option func(*Service)

// WithMetaService sets the loader used to resolve definition URLs.
func WithMetaService(metaService *meta.Service) Option {
	return func(s *Service) { s.metaService = metaService }
}

// New creates a new workflow service instance
func New(opts ...Option) *Service {
	ret := &Service{
		metaService: meta.New(afs.New(), ""),
		cache:       map[string]*model.Workflow{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
