// Package observability provides event-based observability for the workflow
// engine and the inspection subsystem. Level values align with OpenTelemetry
// SeverityNumbers so events can be forwarded to collectors unchanged.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps this level to the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType identifies the kind of event.
type EventType string

const (
	EventInstanceStarted    EventType = "instance.started"
	EventTransitionApplied  EventType = "transition.applied"
	EventTransitionRejected EventType = "transition.rejected"
	EventTransitionIllegal  EventType = "transition.illegal"
	EventTransitionFailed   EventType = "transition.failed"
	EventHookFailed         EventType = "transition.hook.failed"
	EventInspectionStarted  EventType = "inspection.started"
	EventInspectionResumed  EventType = "inspection.resumed"
	EventInspectionReplaced EventType = "inspection.replaced"
	EventSurveyMissing      EventType = "survey.missing"
)

// Event is an observability event. Fields map to OTel LogRecord fields:
// Type→EventName, Level→SeverityNumber, Timestamp→Timestamp,
// Source→InstrumentationScope, Data→Attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events for logging, tracing, or metrics.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) { f(ctx, event) }
