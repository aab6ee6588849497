package fixflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/runtime/inspection"
	"github.com/viant/fixflow/service/messaging/memory"
	"github.com/viant/fixflow/service/meta"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML or JSON; the zero value of a nested section
// falls back to DefaultConfig.
type Config struct {
	Workflow   WorkflowConfig   `json:"workflow" yaml:"workflow"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Inspection InspectionConfig `json:"inspection" yaml:"inspection"`
	Events     EventsConfig     `json:"events" yaml:"events"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// WorkflowConfig selects the workflow definition; the built-in repair
// workflow is used when URL is empty.
type WorkflowConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// StoreConfig selects instance, audit and inspection persistence.
type StoreConfig struct {
	Kind          string `json:"kind" yaml:"kind"`
	InstanceURL   string `json:"instanceURL,omitempty" yaml:"instanceURL,omitempty"`
	AuditURL      string `json:"auditURL,omitempty" yaml:"auditURL,omitempty"`
	InspectionURL string `json:"inspectionURL,omitempty" yaml:"inspectionURL,omitempty"`
}

type InspectionConfig struct {
	State         string                   `json:"state,omitempty" yaml:"state,omitempty"`
	SurveyTitle   string                   `json:"surveyTitle,omitempty" yaml:"surveyTitle,omitempty"`
	MissingSurvey inspection.MissingSurvey `json:"missingSurvey,omitempty" yaml:"missingSurvey,omitempty"`
}

// EventsConfig enables transition event publishing.
type EventsConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Queue   memory.Config `json:"queue" yaml:"queue"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	OutputFile  string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

type LogConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// SlogLevel parses Level, defaulting to info.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// DefaultConfig returns in-memory stores and the built-in workflow. The
// questionnaire title and missing survey policy are left to the workflow
// definition.
func DefaultConfig() *Config {
	return &Config{
		Store:      StoreConfig{Kind: StoreMemory},
		Inspection: InspectionConfig{State: model.StateInspected},
		Events:     EventsConfig{Queue: memory.DefaultConfig()},
		Tracing:    TracingConfig{ServiceName: "fixflow"},
		Log:        LogConfig{Level: "info"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	switch c.Store.Kind {
	case "", StoreMemory:
	case StoreFS:
		if c.Store.InstanceURL == "" {
			errs = append(errs, fmt.Errorf("store.instanceURL is required for %s store", StoreFS))
		}
		if c.Store.AuditURL == "" {
			errs = append(errs, fmt.Errorf("store.auditURL is required for %s store", StoreFS))
		}
		if c.Store.InspectionURL == "" {
			errs = append(errs, fmt.Errorf("store.inspectionURL is required for %s store", StoreFS))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind: unsupported %q", c.Store.Kind))
	}
	if c.Inspection.MissingSurvey != "" {
		if err := c.Inspection.MissingSurvey.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Events.Enabled && c.Events.Queue.QueueBuffer <= 0 {
		errs = append(errs, fmt.Errorf("events.queue.queueBuffer must be > 0"))
	}
	if c.Tracing.Enabled && c.Tracing.ServiceName == "" {
		errs = append(errs, fmt.Errorf("tracing.serviceName is required"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadConfig decodes the YAML configuration at URL on top of DefaultConfig.
// ${env.KEY} expressions are expanded before decoding.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(afs.New(), "", options...).Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
