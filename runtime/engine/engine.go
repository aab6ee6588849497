package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/fixflow/internal/clock"
	"github.com/viant/fixflow/internal/idgen"
	"github.com/viant/fixflow/model/graph"
	"github.com/viant/fixflow/observability"
	"github.com/viant/fixflow/progress"
	"github.com/viant/fixflow/runtime/guard"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/audit"
	"github.com/viant/fixflow/service/dao"
	"github.com/viant/fixflow/service/event"
	"github.com/viant/fixflow/tracing"
)

const source = "fixflow.engine"

// Publisher receives committed transitions.
type Publisher interface {
	Publish(ctx context.Context, event *event.Event[event.Transition]) error
}

// Engine runs instances of a single workflow graph.
type Engine struct {
	graph      *graph.Graph
	instances  dao.Service[string, instance.Instance]
	trail      audit.Trail
	owners     instance.Lookup
	registry   *guard.Registry
	evaluator  *guard.Evaluator
	actions    map[string]Action
	strategies map[string]Strategy
	publisher  Publisher
	observer   observability.Observer
	tracing    bool
	locks      *keyedLock
	sequencer  *sequencer
}

// Graph returns the bound transition graph.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Start creates an instance for owner at the initial state and records its
// creation entry.
func (e *Engine) Start(ctx context.Context, owner instance.Owner) (inst *instance.Instance, err error) {
	if e.tracing {
		var span *tracing.Span
		ctx, span = tracing.StartSpan(ctx, "fixflow.start")
		span.WithAttributes(map[string]string{"workflow": e.graph.Name(), "owner": owner.Ref().String()})
		defer func() { tracing.EndSpan(span, err) }()
	}
	now := clock.Now()
	inst = &instance.Instance{
		ID:        idgen.New(),
		Workflow:  e.graph.Name(),
		State:     e.graph.InitialState().Name,
		Owner:     owner.Ref(),
		SCN:       1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	record := &audit.Record{InstanceID: inst.ID, Seq: inst.SCN, State: inst.State, EnteredAt: now}
	if err = e.instances.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("%w: save instance: %w", ErrStorage, err)
	}
	if err = e.trail.Append(ctx, record); err != nil {
		if rollbackErr := e.instances.Delete(ctx, inst.ID); rollbackErr != nil {
			err = errors.Join(err, rollbackErr)
		}
		return nil, fmt.Errorf("%w: append audit: %w", ErrStorage, err)
	}
	e.publish(ctx, event.TypeStarted, inst, record)
	e.notify(ctx, observability.EventInstanceStarted, observability.LevelInfo, map[string]any{
		"instance": inst.ID, "owner": inst.Owner.String(), "state": inst.State,
	})
	return inst.Clone(), nil
}

// Load returns the instance with the given id.
func (e *Engine) Load(ctx context.Context, id string) (*instance.Instance, error) {
	inst, err := e.instances.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		return nil, fmt.Errorf("%w: load instance %s: %w", ErrStorage, id, err)
	}
	return inst, nil
}

// Fire applies event to the instance. Refused transitions return a
// *RejectionError together with a Result whose Instance carries the reason
// in Errors; the stored instance and its audit trail stay unchanged.
func (e *Engine) Fire(ctx context.Context, id, eventName string, args instance.Args) (result *Result, err error) {
	if e.tracing {
		var span *tracing.Span
		ctx, span = tracing.StartSpan(ctx, "fixflow.fire")
		span.WithAttributes(map[string]string{"instance": id, "event": eventName})
		defer func() {
			if result != nil {
				span.WithAttributes(map[string]string{"from": result.From, "to": result.To})
			}
			tracing.EndSpan(span, err)
		}()
	}
	release := e.locks.Lock(id)
	defer release()

	inst, err := e.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := e.owner(ctx, inst)
	if err != nil {
		return nil, err
	}
	from := inst.State
	edges := e.graph.Match(eventName, from)
	if len(edges) == 0 {
		rejection := &RejectionError{Kind: Illegal, Event: eventName, State: from}
		inst.AddError(ErrorKeyIllegal, rejection.Error())
		e.notify(ctx, observability.EventTransitionIllegal, observability.LevelWarning, map[string]any{
			"instance": id, "event": eventName, "state": from,
		})
		return &Result{Instance: inst, Event: eventName, From: from, To: from}, rejection
	}
	edge := edges[0]
	guardContext := &guard.Context{Instance: inst, Owner: owner, Edge: edge, From: from, Event: eventName, Args: args}
	verdict, err := e.evaluator.Evaluate(ctx, guardContext)
	if err != nil {
		return nil, fmt.Errorf("fire %s on %s: %w", eventName, id, err)
	}
	if !verdict.Allowed {
		rejection := &RejectionError{Kind: Rejected, Event: eventName, State: from, Guard: verdict.Guard, Reason: verdict.Reason}
		inst.AddError(ErrorKeyRejected, verdict.Reason)
		e.notify(ctx, observability.EventTransitionRejected, observability.LevelInfo, map[string]any{
			"instance": id, "event": eventName, "state": from, "guard": verdict.Guard, "reason": verdict.Reason,
		})
		return &Result{Instance: inst, Event: eventName, From: from, To: from, Edge: edge}, rejection
	}

	now := clock.After(inst.UpdatedAt)
	next := inst.Clone()
	next.Errors = nil
	undo, err := e.runActions(ctx, &ActionContext{Instance: next, Owner: owner, Edge: edge, From: from, Args: args, At: now})
	if err != nil {
		e.fail(ctx, id, eventName, from, err)
		return nil, fmt.Errorf("fire %s on %s: %w", eventName, id, err)
	}
	next.State = edge.To
	next.SCN++
	next.UpdatedAt = now
	record := &audit.Record{
		InstanceID: id,
		Seq:        next.SCN,
		State:      edge.To,
		Event:      eventName,
		From:       from,
		EnteredAt:  now,
		Args:       args.Persistable(),
	}
	if err = e.commit(ctx, inst, next, record); err != nil {
		if undoErr := undo(ctx); undoErr != nil {
			err = errors.Join(err, undoErr)
		}
		e.fail(ctx, id, eventName, from, err)
		return nil, err
	}

	guardContext.Instance = next
	for _, hookErr := range e.evaluator.After(ctx, guardContext) {
		e.notify(ctx, observability.EventHookFailed, observability.LevelError, map[string]any{
			"instance": id, "event": eventName, "error": hookErr.Error(),
		})
	}
	e.publish(ctx, event.TypeTransition, next, record)
	e.notify(ctx, observability.EventTransitionApplied, observability.LevelInfo, map[string]any{
		"instance": id, "event": eventName, "from": from, "to": edge.To, "seq": record.Seq,
	})
	// the transition is committed; a routing failure only drops the payload
	action, err := e.ActionHash(ctx, next)
	if err != nil {
		e.notify(ctx, observability.EventHookFailed, observability.LevelWarning, map[string]any{
			"instance": id, "event": eventName, "state": edge.To, "error": fmt.Sprintf("action hash: %v", err),
		})
		action = nil
	}
	return &Result{
		Instance: next.Clone(),
		Event:    eventName,
		From:     from,
		To:       edge.To,
		Edge:     edge,
		Record:   record.Clone(),
		Action:   action,
	}, nil
}

func (e *Engine) runActions(ctx context.Context, c *ActionContext) (instance.Undo, error) {
	var undos []instance.Undo
	undo := func(ctx context.Context) error { return instance.Undos(ctx, undos) }
	for _, name := range c.Edge.Actions {
		action, ok := e.actions[name]
		if !ok {
			return nil, errors.Join(fmt.Errorf("%w: %s", ErrUnknownAction, name), undo(ctx))
		}
		actionUndo, err := action(ctx, c)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("action %s: %w", name, err), undo(ctx))
		}
		undos = append(undos, actionUndo)
	}
	return undo, nil
}

// commit stores next and appends record; a failed append restores previous.
func (e *Engine) commit(ctx context.Context, previous, next *instance.Instance, record *audit.Record) error {
	if err := e.instances.Save(ctx, next); err != nil {
		return fmt.Errorf("%w: save instance %s: %w", ErrStorage, next.ID, err)
	}
	if err := e.trail.Append(ctx, record); err != nil {
		restore := previous.Clone()
		restore.Errors = nil
		if restoreErr := e.instances.Save(ctx, restore); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
		return fmt.Errorf("%w: append audit %s: %w", ErrStorage, next.ID, err)
	}
	return nil
}

// CanFire reports whether event would currently be accepted.
func (e *Engine) CanFire(ctx context.Context, id, eventName string, args instance.Args) (bool, error) {
	inst, err := e.Load(ctx, id)
	if err != nil {
		return false, err
	}
	return e.canFire(ctx, inst, eventName, args)
}

func (e *Engine) canFire(ctx context.Context, inst *instance.Instance, eventName string, args instance.Args) (bool, error) {
	edges := e.graph.Match(eventName, inst.State)
	if len(edges) == 0 {
		return false, nil
	}
	owner, err := e.owner(ctx, inst)
	if err != nil {
		return false, err
	}
	verdict, err := e.evaluator.Evaluate(ctx, &guard.Context{Instance: inst, Owner: owner, Edge: edges[0], From: inst.State, Event: eventName, Args: args})
	if err != nil {
		return false, err
	}
	return verdict.Allowed, nil
}

// PermittedEvents lists events accepted from the current state.
func (e *Engine) PermittedEvents(ctx context.Context, id string, args instance.Args) ([]string, error) {
	inst, err := e.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, name := range e.graph.Events() {
		ok, err := e.canFire(ctx, inst, name, args)
		if err != nil {
			return nil, err
		}
		if ok {
			ret = append(ret, name)
		}
	}
	return ret, nil
}

// ActionHash resolves the routing payload of inst's current state.
func (e *Engine) ActionHash(ctx context.Context, inst *instance.Instance) (Payload, error) {
	strategy, ok := e.strategies[inst.State]
	if !ok || strategy.ActionHash == nil {
		return nil, nil
	}
	return strategy.ActionHash(ctx, inst)
}

// UserCan reports whether userID may perform action on the instance.
func (e *Engine) UserCan(ctx context.Context, id, userID, action string) (bool, error) {
	inst, err := e.Load(ctx, id)
	if err != nil {
		return false, err
	}
	strategy, ok := e.strategies[inst.State]
	if !ok || strategy.UserCan == nil {
		return true, nil
	}
	return strategy.UserCan(ctx, inst, userID, action)
}

// Steps returns the canonical step sequence of the instance.
func (e *Engine) Steps(ctx context.Context, id string) ([]string, error) {
	inst, err := e.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.steps(ctx, inst)
}

func (e *Engine) steps(ctx context.Context, inst *instance.Instance) ([]string, error) {
	owner, err := e.owner(ctx, inst)
	if err != nil {
		return nil, err
	}
	return e.sequencer.Steps(owner.IsTerminal()), nil
}

// Transitions returns, for each canonical step, the last record that entered
// it; Record is nil for steps never entered.
func (e *Engine) Transitions(ctx context.Context, id string) ([]*Step, error) {
	inst, err := e.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.transitions(ctx, inst)
}

func (e *Engine) transitions(ctx context.Context, inst *instance.Instance) ([]*Step, error) {
	steps, err := e.steps(ctx, inst)
	if err != nil {
		return nil, err
	}
	records, err := e.trail.List(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: audit of %s: %w", ErrStorage, inst.ID, err)
	}
	ret := make([]*Step, len(steps))
	for i, state := range steps {
		ret[i] = &Step{State: state, Record: audit.EntryFor(records, state)}
	}
	return ret, nil
}

// Progress renders the instance progress along its canonical steps.
func (e *Engine) Progress(ctx context.Context, id string) (*progress.Progress, error) {
	inst, err := e.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	transitions, err := e.transitions(ctx, inst)
	if err != nil {
		return nil, err
	}
	steps := make([]string, len(transitions))
	entered := make([]*time.Time, len(transitions))
	for i, step := range transitions {
		steps[i] = step.State
		if step.Record != nil {
			at := step.Record.EnteredAt
			entered[i] = &at
		}
	}
	return progress.Build(steps, inst.State, entered), nil
}

func (e *Engine) owner(ctx context.Context, inst *instance.Instance) (instance.Owner, error) {
	owner, err := e.owners.Owner(ctx, inst.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner %s of %s: %w", inst.Owner, inst.ID, err)
	}
	return owner, nil
}

func (e *Engine) publish(ctx context.Context, eventType string, inst *instance.Instance, record *audit.Record) {
	if e.publisher == nil {
		return
	}
	evt := event.NewEvent(&event.Context{
		InstanceID: inst.ID,
		Workflow:   inst.Workflow,
		Owner:      inst.Owner,
		EventType:  eventType,
	}, event.Transition{Event: record.Event, From: record.From, To: record.State, Seq: record.Seq, EnteredAt: record.EnteredAt})
	if err := e.publisher.Publish(ctx, evt); err != nil {
		e.notify(ctx, observability.EventHookFailed, observability.LevelWarning, map[string]any{
			"instance": inst.ID, "event": record.Event, "error": fmt.Sprintf("publish: %v", err),
		})
	}
}

func (e *Engine) fail(ctx context.Context, id, eventName, from string, err error) {
	e.notify(ctx, observability.EventTransitionFailed, observability.LevelError, map[string]any{
		"instance": id, "event": eventName, "state": from, "error": err.Error(),
	})
}

func (e *Engine) notify(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	e.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: clock.Now(),
		Source:    source,
		Data:      data,
	})
}

// New creates an engine for g. Every guard, hook and action referenced by
// the graph must be registered.
func New(g *graph.Graph, instances dao.Service[string, instance.Instance], trail audit.Trail, owners instance.Lookup, opts ...Option) (*Engine, error) {
	ret := &Engine{
		graph:      g,
		instances:  instances,
		trail:      trail,
		owners:     owners,
		actions:    map[string]Action{},
		strategies: map[string]Strategy{},
		observer:   observability.NoOpObserver{},
		locks:      newKeyedLock(),
		sequencer:  newSequencer(g),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.registry == nil {
		ret.registry = guard.NewRegistry()
	}
	if err := ret.registry.Validate(g); err != nil {
		return nil, err
	}
	var missing []error
	for _, name := range g.Events() {
		for _, edge := range g.EdgesFor(name) {
			for _, action := range edge.Actions {
				if _, ok := ret.actions[action]; !ok {
					missing = append(missing, fmt.Errorf("%w: %s on %s", ErrUnknownAction, action, name))
				}
			}
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}
	ret.evaluator = guard.NewEvaluator(g, ret.registry)
	return ret, nil
}
