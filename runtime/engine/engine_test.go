package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fixflow/internal/clock"
	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/observability"
	"github.com/viant/fixflow/runtime/guard"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/audit"
	auditmemory "github.com/viant/fixflow/service/audit/memory"
	instancememory "github.com/viant/fixflow/service/dao/instance/memory"
	"github.com/viant/fixflow/service/event"
	messagingmemory "github.com/viant/fixflow/service/messaging/memory"
)

type fixture struct {
	engine    *Engine
	instances *instancememory.Service
	trail     audit.Trail
	owner     *instance.Basic
	registry  *instance.Registry
	pass      bool
	actions   []string
	events    []observability.Event
	mux       sync.Mutex
}

type flakyTrail struct {
	audit.Trail
	fail bool
}

func (f *flakyTrail) Append(ctx context.Context, record *audit.Record) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Trail.Append(ctx, record)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	f := &fixture{
		instances: instancememory.New(),
		trail:     &flakyTrail{Trail: auditmemory.New()},
		owner:     instance.NewBasic("bike", "7"),
		registry:  instance.NewRegistry(),
	}
	f.registry.Put(f.owner)
	g, err := model.Repair().Graph()
	require.NoError(t, err)
	registry := guard.NewRegistry().RegisterPredicate(model.GuardPassRequirement, func(context.Context, *guard.Context) (bool, error) {
		return f.pass, nil
	})
	record := func(name string) Action {
		return func(_ context.Context, c *ActionContext) (instance.Undo, error) {
			f.mux.Lock()
			f.actions = append(f.actions, name)
			f.mux.Unlock()
			previous := c.Instance.AccessCode
			c.Instance.AccessCode = name
			return func(context.Context) error {
				c.Instance.AccessCode = previous
				return nil
			}, nil
		}
	}
	base := []Option{
		WithRegistry(registry),
		WithAction(model.ActionStartInspection, record(model.ActionStartInspection)),
		WithAction(model.ActionResumeInspection, record(model.ActionResumeInspection)),
		WithStrategy(model.StateDone, FinishStrategy()),
		WithObserver(observability.ObserverFunc(func(_ context.Context, e observability.Event) {
			f.mux.Lock()
			f.events = append(f.events, e)
			f.mux.Unlock()
		})),
	}
	f.engine, err = New(g, f.instances, f.trail, f.registry, append(base, opts...)...)
	require.NoError(t, err)
	return f
}

func (f *fixture) records(t *testing.T, id string) []*audit.Record {
	records, err := f.trail.List(context.Background(), id)
	require.NoError(t, err)
	return records
}

func withClock(t *testing.T) {
	previous := clock.NowFunc
	clock.NowFunc = clock.Sequence(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), time.Second)
	t.Cleanup(func() { clock.NowFunc = previous })
}

func TestEngine_Start(t *testing.T) {
	withClock(t)
	f := newFixture(t)
	inst, err := f.engine.Start(context.Background(), f.owner)
	require.NoError(t, err)
	assert.Equal(t, model.StateReadyToInspect, inst.State)
	assert.Equal(t, 1, inst.SCN)
	records := f.records(t, inst.ID)
	require.Len(t, records, 1)
	assert.Equal(t, model.StateReadyToInspect, records[0].State)
}

func TestEngine_Fire_Scenarios(t *testing.T) {
	withClock(t)
	ctx := context.Background()
	f := newFixture(t)
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)

	// finishing before inspection is illegal
	result, err := f.engine.Fire(ctx, inst.ID, model.EventFinishProject, nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.NotEmpty(t, result.Instance.Error(ErrorKeyIllegal))
	assert.Len(t, f.records(t, inst.ID), 1)

	result, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, instance.Args{instance.UserKey: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.StateInspected, result.Instance.State)
	assert.Equal(t, model.StateReadyToInspect, result.From)
	assert.Equal(t, model.ActionStartInspection, result.Instance.AccessCode)
	records := f.records(t, inst.ID)
	require.Len(t, records, 2)
	assert.Equal(t, model.StateInspected, records[1].State)
	assert.Equal(t, "u1", records[1].Args[instance.UserKey])
	assert.True(t, records[1].EnteredAt.After(records[0].EnteredAt))

	// re-entrant transition appends a new record
	_, err = f.engine.Fire(ctx, inst.ID, model.EventResumeInspection, nil)
	require.NoError(t, err)
	assert.Len(t, f.records(t, inst.ID), 3)

	// pass requirement false
	result, err = f.engine.Fire(ctx, inst.ID, model.EventFinishProject, nil)
	assert.ErrorIs(t, err, ErrGuardRejected)
	assert.Equal(t, model.StateInspected, result.Instance.State)
	assert.Len(t, f.records(t, inst.ID), 3)
	stored, err := f.engine.Load(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateInspected, stored.State)

	f.pass = true
	result, err = f.engine.Fire(ctx, inst.ID, model.EventFinishProject, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateDone, result.Instance.State)
	assert.Equal(t, Payload{"target": TargetFinish, "owner": "7"}, result.Action)
	assert.Equal(t, 4, result.Instance.SCN)

	_, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestEngine_Fire_OwnerClosed(t *testing.T) {
	withClock(t)
	ctx := context.Background()
	f := newFixture(t)
	f.pass = true
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)
	f.owner.SetOpen(false)

	result, err := f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	assert.ErrorIs(t, err, ErrGuardRejected)
	assert.Equal(t, guard.ReasonOwnerClosed, Reason(err))
	assert.Equal(t, guard.ReasonOwnerClosed, result.Instance.Error(ErrorKeyRejected))
	assert.Empty(t, f.actions)

	f.owner.SetOpen(true)
	_, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)
	f.owner.SetOpen(false)
	for _, name := range []string{model.EventStartInspection, model.EventResumeInspection, model.EventFinishProject} {
		_, err = f.engine.Fire(ctx, inst.ID, name, nil)
		assert.ErrorIs(t, err, ErrGuardRejected, name)
		assert.Equal(t, guard.ReasonOwnerClosed, Reason(err), name)
	}
	assert.Len(t, f.records(t, inst.ID), 2)
}

func TestEngine_Fire_StorageFailure(t *testing.T) {
	withClock(t)
	ctx := context.Background()
	f := newFixture(t)
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)

	f.trail.(*flakyTrail).fail = true
	_, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	assert.ErrorIs(t, err, ErrStorage)

	stored, err := f.engine.Load(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateReadyToInspect, stored.State)
	assert.Equal(t, 1, stored.SCN)
	assert.Empty(t, stored.AccessCode)

	f.trail.(*flakyTrail).fail = false
	_, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)
}

func TestEngine_Fire_ActionFailure(t *testing.T) {
	withClock(t)
	ctx := context.Background()
	boom := errors.New("survey down")
	f := newFixture(t, WithAction(model.ActionStartInspection, func(context.Context, *ActionContext) (instance.Undo, error) {
		return nil, boom
	}))
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)
	_, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.records(t, inst.ID), 1)
}

func TestEngine_Fire_ActionHashFailure(t *testing.T) {
	withClock(t)
	ctx := context.Background()
	f := newFixture(t, WithStrategy(model.StateInspected, Strategy{
		ActionHash: func(context.Context, *instance.Instance) (Payload, error) {
			return nil, errors.New("survey lookup down")
		},
	}))
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)

	result, err := f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Action)
	assert.Equal(t, model.StateInspected, result.Instance.State)
	assert.Equal(t, model.StateInspected, result.Record.State)

	stored, err := f.engine.Load(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateInspected, stored.State)
	assert.Len(t, f.records(t, inst.ID), 2)

	var failed []observability.Event
	for _, e := range f.events {
		if e.Type == observability.EventHookFailed {
			failed = append(failed, e)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, observability.LevelWarning, failed[0].Level)
	assert.Equal(t, inst.ID, failed[0].Data["instance"])
}

func TestEngine_StepsCacheIsShared(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var ids []string
	for i := 0; i < 20; i++ {
		inst, err := f.engine.Start(ctx, f.owner)
		require.NoError(t, err)
		_, err = f.engine.Steps(ctx, inst.ID)
		require.NoError(t, err)
		ids = append(ids, inst.ID)
	}
	assert.Equal(t, 1, f.engine.sequencer.computed)
	assert.Len(t, f.engine.sequencer.cache, 1)

	f.owner.SetTerminal(true)
	for _, id := range ids {
		_, err := f.engine.Steps(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.engine.sequencer.computed)
	assert.Len(t, f.engine.sequencer.cache, 2)
}

func TestEngine_Queries(t *testing.T) {
	withClock(t)
	ctx := context.Background()
	f := newFixture(t)
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)

	steps, err := f.engine.Steps(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.StateReadyToInspect, model.StateInspected, model.StateDone}, steps)
	_, _ = f.engine.Steps(ctx, inst.ID)
	assert.Equal(t, 1, f.engine.sequencer.computed)
	f.owner.SetTerminal(true)
	_, _ = f.engine.Steps(ctx, inst.ID)
	assert.Equal(t, 2, f.engine.sequencer.computed)

	events, err := f.engine.PermittedEvents(ctx, inst.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{model.EventStartInspection}, events)

	_, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)
	ok, err := f.engine.CanFire(ctx, inst.ID, model.EventFinishProject, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	f.pass = true
	ok, err = f.engine.CanFire(ctx, inst.ID, model.EventFinishProject, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	transitions, err := f.engine.Transitions(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, transitions, 3)
	assert.NotNil(t, transitions[0].Record)
	assert.NotNil(t, transitions[1].Record)
	assert.Nil(t, transitions[2].Record)

	view, err := f.engine.Progress(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Completed)
	assert.Equal(t, model.StateInspected, view.Current)

	can, err := f.engine.UserCan(ctx, inst.ID, "u1", "anything")
	require.NoError(t, err)
	assert.True(t, can)

	_, err = f.engine.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestEngine_Publish(t *testing.T) {
	withClock(t)
	ctx := context.Background()
	queue := messagingmemory.NewQueue[event.Event[event.Transition]](messagingmemory.DefaultConfig())
	publisher := event.NewPublisher[event.Transition](queue)
	f := newFixture(t, WithPublisher(publisher))
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)
	_, err = f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)

	started, err := publisher.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.TypeStarted, started.Context.EventType)
	moved, err := publisher.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.TypeTransition, moved.Context.EventType)
	assert.Equal(t, model.StateInspected, moved.Data.To)
	assert.Equal(t, 2, moved.Data.Seq)
}

func TestEngine_Concurrency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inst, err := f.engine.Start(ctx, f.owner)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mux sync.Mutex
	succeeded, illegal := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Fire(ctx, inst.ID, model.EventStartInspection, nil)
			mux.Lock()
			defer mux.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrIllegalTransition) {
				illegal++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, succeeded+illegal)
	records := f.records(t, inst.ID)
	assert.Len(t, records, 1+succeeded)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i].EnteredAt.After(records[i-1].EnteredAt))
		assert.Equal(t, records[i-1].Seq+1, records[i].Seq)
	}
	assert.Equal(t, 0, f.engine.locks.size())
}

func TestNew_Validation(t *testing.T) {
	g, err := model.Repair().Graph()
	require.NoError(t, err)
	_, err = New(g, instancememory.New(), auditmemory.New(), instance.NewRegistry())
	assert.ErrorIs(t, err, guard.ErrUnknownGuard)

	registry := guard.NewRegistry().RegisterPredicate(model.GuardPassRequirement, guard.Always)
	_, err = New(g, instancememory.New(), auditmemory.New(), instance.NewRegistry(), WithRegistry(registry))
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestKeyedLock(t *testing.T) {
	locks := newKeyedLock()
	release := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("a")
		unlock()
		close(done)
	}()
	other := locks.Lock("b")
	other()
	select {
	case <-done:
		t.Fatal("lock on a was not exclusive")
	case <-time.After(10 * time.Millisecond):
	}
	release()
	<-done
	assert.Equal(t, 0, locks.size())
}

func TestRejectionError(t *testing.T) {
	illegal := &RejectionError{Kind: Illegal, Event: "e", State: "s"}
	assert.ErrorIs(t, illegal, ErrIllegalTransition)
	assert.Equal(t, "engine: illegal transition e from s", illegal.Error())
	rejected := &RejectionError{Kind: Rejected, Event: "e", State: "s", Reason: "owner closed"}
	assert.ErrorIs(t, rejected, ErrGuardRejected)
	assert.Equal(t, "owner closed", Reason(rejected))
	assert.Empty(t, Reason(errors.New("x")))
}
