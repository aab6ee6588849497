package fixflow_test

import (
	"context"
	"embed"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"
	"github.com/viant/fixflow"
	"github.com/viant/fixflow/internal/clock"
	"github.com/viant/fixflow/model"
	"github.com/viant/fixflow/runtime/engine"
	"github.com/viant/fixflow/runtime/guard"
	"github.com/viant/fixflow/runtime/inspection"
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/audit"
	auditmemory "github.com/viant/fixflow/service/audit/memory"
	"github.com/viant/fixflow/service/event"
	"github.com/viant/fixflow/service/survey"
	surveymemory "github.com/viant/fixflow/service/survey/memory"
)

//go:embed testdata/*
var embedFS embed.FS

var bikeCheck = &survey.Definition{ID: "s1", Title: model.DefaultSurveyTitle, Code: "bike-check"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stubClock(t *testing.T) {
	previous := clock.NowFunc
	clock.NowFunc = clock.Sequence(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), time.Minute)
	t.Cleanup(func() { clock.NowFunc = previous })
}

func newService(t *testing.T, opts ...fixflow.Option) (*fixflow.Service, *surveymemory.Service, audit.Trail) {
	surveys := surveymemory.New(bikeCheck)
	trail := auditmemory.New()
	base := []fixflow.Option{
		fixflow.WithSurveyService(surveys),
		fixflow.WithAuditTrail(trail),
		fixflow.WithLogger(discardLogger()),
	}
	srv, err := fixflow.New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, surveys, trail
}

func TestService_RepairScenario(t *testing.T) {
	stubClock(t)
	ctx := context.Background()
	srv, surveys, trail := newService(t)
	owner := instance.NewBasic("bike", "7")

	inst, err := srv.Start(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, model.StateReadyToInspect, inst.State)

	// enters inspected and records exactly one entry for it
	result, err := srv.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateInspected, result.Instance.State)
	records, err := trail.List(ctx, inst.ID)
	require.NoError(t, err)
	inspected := 0
	for _, record := range records {
		if record.State == model.StateInspected {
			inspected++
		}
	}
	assert.Equal(t, 1, inspected)

	// resume without a prior inspection starts one
	result, err = srv.Fire(ctx, inst.ID, model.EventResumeInspection, instance.Args{instance.UserKey: "u1"})
	require.NoError(t, err)
	first, err := srv.Inspections().Find(ctx, inst.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, result.Record.EnteredAt, first.StartedAt)
	assert.Equal(t, first.AccessCode, result.Instance.AccessCode)
	assert.Equal(t, engine.Payload{"target": inspection.TargetInspectionEdit, "survey": "bike-check", "code": first.AccessCode}, result.Action)
	valid, err := srv.Inspections().IsValid(ctx, first)
	require.NoError(t, err)
	assert.True(t, valid)

	// re-entering inspected invalidates the earlier inspection
	result, err = srv.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)
	assert.True(t, result.Record.EnteredAt.After(first.StartedAt))
	valid, err = srv.Inspections().IsValid(ctx, first)
	require.NoError(t, err)
	assert.False(t, valid)

	// finishing without a passing inspection is vetoed
	result, err = srv.Fire(ctx, inst.ID, model.EventFinishProject, nil)
	assert.ErrorIs(t, err, engine.ErrGuardRejected)
	assert.Equal(t, model.StateInspected, result.Instance.State)
	assert.NotEmpty(t, result.Instance.Error(engine.ErrorKeyRejected))

	require.NoError(t, surveys.Answer(first.AccessCode, true, true))
	result, err = srv.Fire(ctx, inst.ID, model.EventFinishProject, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateDone, result.Instance.State)
	assert.Equal(t, engine.Payload{"target": engine.TargetFinish, "owner": "7"}, result.Action)

	steps, err := srv.Engine().Steps(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.StateReadyToInspect, model.StateInspected, model.StateDone}, steps)
}

func TestService_FinishFromWrongState(t *testing.T) {
	ctx := context.Background()
	srv, _, _ := newService(t, fixflow.WithPassRequirement(func(context.Context, *guard.Context) (bool, error) {
		return true, nil
	}))
	inst, err := srv.Start(ctx, instance.NewBasic("bike", "8"))
	require.NoError(t, err)

	result, err := srv.Fire(ctx, inst.ID, model.EventFinishProject, nil)
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
	assert.Equal(t, model.StateReadyToInspect, result.Instance.State)
	assert.NotEmpty(t, result.Instance.Error(engine.ErrorKeyIllegal))
}

func TestService_OwnerClosed(t *testing.T) {
	ctx := context.Background()
	srv, _, _ := newService(t)
	owner := instance.NewBasic("bike", "9")
	inst, err := srv.Start(ctx, owner)
	require.NoError(t, err)
	_, err = srv.Fire(ctx, inst.ID, model.EventStartInspection, nil)
	require.NoError(t, err)
	owner.SetOpen(false)

	for _, eventName := range []string{model.EventStartInspection, model.EventResumeInspection, model.EventFinishProject} {
		t.Run(eventName, func(t *testing.T) {
			result, err := srv.Fire(ctx, inst.ID, eventName, instance.Args{instance.UserKey: "u1"})
			assert.ErrorIs(t, err, engine.ErrGuardRejected)
			assert.Equal(t, "owner closed", engine.Reason(err))
			assert.Equal(t, model.StateInspected, result.Instance.State)
		})
	}
}

func TestService_EventListener(t *testing.T) {
	ctx := context.Background()
	received := make(chan *event.Event[event.Transition], 4)
	srv, _, _ := newService(t, fixflow.WithEventListener(func(evt *event.Event[event.Transition]) {
		received <- evt
	}))
	inst, err := srv.Start(ctx, instance.NewBasic("bike", "10"))
	require.NoError(t, err)
	_, err = srv.Fire(ctx, inst.ID, model.EventStartInspection, instance.Args{instance.UserKey: "u1"})
	require.NoError(t, err)

	var events []*event.Event[event.Transition]
	for len(events) < 2 {
		select {
		case evt := <-received:
			events = append(events, evt)
		case <-time.After(time.Second):
			t.Fatalf("expected 2 events, got %d", len(events))
		}
	}
	assert.Equal(t, event.TypeStarted, events[0].Context.EventType)
	assert.Equal(t, model.StateReadyToInspect, events[0].Data.To)
	assert.Equal(t, inst.ID, events[1].Context.InstanceID)
	assert.Equal(t, event.TypeTransition, events[1].Context.EventType)
	assert.Equal(t, model.StateReadyToInspect, events[1].Data.From)
	assert.Equal(t, model.StateInspected, events[1].Data.To)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("FIXFLOW_SURVEY", "Bike check")
	ctx := context.Background()
	cfg, err := fixflow.LoadConfig(ctx, "embed:///testdata/config.yaml", &embedFS)
	require.NoError(t, err)
	assert.Equal(t, "repair.yaml", cfg.Workflow.URL)
	assert.Equal(t, "Bike check", cfg.Inspection.SurveyTitle)
	assert.Equal(t, inspection.MissingSurveyReject, cfg.Inspection.MissingSurvey)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, 16, cfg.Events.Queue.QueueBuffer)
	assert.Equal(t, 10*time.Millisecond, cfg.Events.Queue.RetryDelay)
	assert.Equal(t, model.StateInspected, cfg.Inspection.State)

	surveys := surveymemory.New()
	srv, err := fixflow.NewFromConfig(ctx, cfg,
		fixflow.WithMetaBaseURL("embed:///testdata"),
		fixflow.WithMetaFsOptions(&embedFS),
		fixflow.WithSurveyService(surveys),
		fixflow.WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	defer srv.Close()
	assert.Equal(t, "repair", srv.Workflow().Name)

	inst, err := srv.Start(ctx, instance.NewBasic("bike", "11"))
	require.NoError(t, err)
	_, err = srv.Fire(ctx, inst.ID, model.EventStartInspection, instance.Args{instance.UserKey: "u1"})
	assert.ErrorIs(t, err, inspection.ErrMissingSurveyDefinition)
	loaded, err := srv.Engine().Load(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateReadyToInspect, loaded.State)

	surveys.AddDefinition(&survey.Definition{ID: "s2", Title: "Bike check", Code: "bc"})
	result, err := srv.Fire(ctx, inst.ID, model.EventStartInspection, instance.Args{instance.UserKey: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "bc", result.Action["survey"])
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(c *fixflow.Config)
		expectErr   bool
	}{
		{description: "defaults", mutate: func(c *fixflow.Config) {}},
		{description: "fs store without urls", mutate: func(c *fixflow.Config) { c.Store.Kind = fixflow.StoreFS }, expectErr: true},
		{description: "fs store", mutate: func(c *fixflow.Config) {
			c.Store = fixflow.StoreConfig{Kind: fixflow.StoreFS, InstanceURL: "/tmp/i", AuditURL: "/tmp/a", InspectionURL: "/tmp/s"}
		}},
		{description: "fs store without inspection url", mutate: func(c *fixflow.Config) {
			c.Store = fixflow.StoreConfig{Kind: fixflow.StoreFS, InstanceURL: "/tmp/i", AuditURL: "/tmp/a"}
		}, expectErr: true},
		{description: "unknown store", mutate: func(c *fixflow.Config) { c.Store.Kind = "redis" }, expectErr: true},
		{description: "bad policy", mutate: func(c *fixflow.Config) { c.Inspection.MissingSurvey = "ignore" }, expectErr: true},
		{description: "bad log level", mutate: func(c *fixflow.Config) { c.Log.Level = "loud" }, expectErr: true},
		{description: "tracing without name", mutate: func(c *fixflow.Config) {
			c.Tracing = fixflow.TracingConfig{Enabled: true}
		}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			cfg := fixflow.DefaultConfig()
			testCase.mutate(cfg)
			err := cfg.Validate()
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_FsStore(t *testing.T) {
	ctx := context.Background()
	cfg := fixflow.DefaultConfig()
	cfg.Store = fixflow.StoreConfig{Kind: fixflow.StoreFS, InstanceURL: t.TempDir(), AuditURL: t.TempDir(), InspectionURL: t.TempDir()}
	surveys := surveymemory.New(bikeCheck)
	srv, err := fixflow.NewFromConfig(ctx, cfg,
		fixflow.WithSurveyService(surveys),
		fixflow.WithLogger(discardLogger()))
	require.NoError(t, err)
	defer srv.Close()

	inst, err := srv.Start(ctx, instance.NewBasic("bike", "12"))
	require.NoError(t, err)
	_, err = srv.Fire(ctx, inst.ID, model.EventStartInspection, instance.Args{instance.UserKey: "u1"})
	require.NoError(t, err)
	transitions, err := srv.Engine().Transitions(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, transitions, 3)
	assert.NotNil(t, transitions[0].Record)
	assert.NotNil(t, transitions[1].Record)
	assert.Nil(t, transitions[2].Record)
	can, err := srv.Engine().UserCan(ctx, inst.ID, "u1", model.ActionResumeInspection)
	require.NoError(t, err)
	require.True(t, can)

	// a restarted service sees the inspection started before the restart
	restarted, err := fixflow.NewFromConfig(ctx, cfg,
		fixflow.WithSurveyService(surveys),
		fixflow.WithLogger(discardLogger()))
	require.NoError(t, err)
	defer restarted.Close()
	found, err := restarted.Inspections().Find(ctx, inst.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, found)
	can, err = restarted.Engine().UserCan(ctx, inst.ID, "u1", model.ActionResumeInspection)
	require.NoError(t, err)
	assert.True(t, can)
	can, err = restarted.Engine().UserCan(ctx, inst.ID, "u1", model.ActionStartInspection)
	require.NoError(t, err)
	assert.False(t, can)

	require.NoError(t, surveys.Answer(found.AccessCode, true, true))
	passed, err := restarted.Inspections().AnyPass(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestService_ResumeExistingInspection(t *testing.T) {
	stubClock(t)
	ctx := context.Background()
	srv, _, _ := newService(t)
	inst, err := srv.Start(ctx, instance.NewBasic("bike", "14"))
	require.NoError(t, err)
	user := instance.Args{instance.UserKey: "u1"}

	_, err = srv.Fire(ctx, inst.ID, model.EventStartInspection, user)
	require.NoError(t, err)
	can, err := srv.Engine().UserCan(ctx, inst.ID, "u1", model.ActionResumeInspection)
	require.NoError(t, err)
	require.True(t, can)
	started, err := srv.Inspections().Find(ctx, inst.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, started)

	// resume re-enters inspected, so the kept inspection predates the entry
	result, err := srv.Fire(ctx, inst.ID, model.EventResumeInspection, user)
	require.NoError(t, err)
	assert.Equal(t, started.AccessCode, result.Instance.AccessCode)
	assert.True(t, result.Record.EnteredAt.After(started.StartedAt))
	resumed, err := srv.Inspections().Find(ctx, inst.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, started.ID, resumed.ID)
	valid, err := srv.Inspections().IsValid(ctx, resumed)
	require.NoError(t, err)
	assert.False(t, valid)
	can, err = srv.Engine().UserCan(ctx, inst.ID, "u1", model.ActionResumeInspection)
	require.NoError(t, err)
	assert.False(t, can)
	can, err = srv.Engine().UserCan(ctx, inst.ID, "u1", model.ActionStartInspection)
	require.NoError(t, err)
	assert.True(t, can)
}

func TestService_WorkflowMissingSurveyPolicy(t *testing.T) {
	testCases := []struct {
		description string
		value       interface{}
		expectErr   bool
	}{
		{description: "skip", value: "skip"},
		{description: "reject", value: "reject"},
		{description: "typo", value: "abort", expectErr: true},
		{description: "not a string", value: 1, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			workflow := model.Repair().WithConfig("missingSurvey", testCase.value)
			srv, err := fixflow.New(context.Background(),
				fixflow.WithWorkflow(workflow),
				fixflow.WithSurveyService(surveymemory.New(bikeCheck)),
				fixflow.WithLogger(discardLogger()))
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_ = srv.Close()
		})
	}
}
