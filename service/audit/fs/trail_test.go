package fs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fixflow/service/audit"
)

func TestTrail(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	trail, err := New(dir, nil)
	require.NoError(t, err)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, trail.Append(ctx, &audit.Record{InstanceID: "i1", Seq: 1, State: "ready_to_inspect", EnteredAt: t0}))
	require.NoError(t, trail.Append(ctx, &audit.Record{InstanceID: "i1", Seq: 2, State: "inspected", Event: "start_inspection", From: "ready_to_inspect", EnteredAt: t0.Add(time.Second), Args: map[string]interface{}{"user": "u1"}}))
	assert.ErrorIs(t, trail.Append(ctx, &audit.Record{InstanceID: "i1", Seq: 2, State: "done", EnteredAt: t0.Add(time.Hour)}), audit.ErrOutOfOrder)

	latest, err := trail.Latest(ctx, "i1", "inspected")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "u1", latest.Args["user"])
	assert.True(t, t0.Add(time.Second).Equal(latest.EnteredAt))

	reopened, err := New(dir, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, reopened.Append(ctx, &audit.Record{InstanceID: "i1", Seq: 3, State: "inspected", EnteredAt: t0}), audit.ErrOutOfOrder)
	require.NoError(t, reopened.Append(ctx, &audit.Record{InstanceID: "i1", Seq: 3, State: "inspected", EnteredAt: t0.Add(2 * time.Second)}))

	records, err := reopened.List(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{records[0].Seq, records[1].Seq, records[2].Seq})

	none, err := reopened.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
