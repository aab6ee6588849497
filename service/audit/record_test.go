package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryFor(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*Record{
		{Seq: 1, State: "ready_to_inspect", EnteredAt: t0},
		{Seq: 2, State: "inspected", EnteredAt: t0.Add(time.Second)},
		{Seq: 3, State: "inspected", EnteredAt: t0.Add(2 * time.Second)},
	}
	assert.Equal(t, 3, EntryFor(records, "inspected").Seq)
	assert.Equal(t, 1, EntryFor(records, "ready_to_inspect").Seq)
	assert.Nil(t, EntryFor(records, "done"))
	assert.Nil(t, EntryFor(nil, "done"))
}

func TestCheckNext(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := &Record{InstanceID: "1", Seq: 2, State: "a", EnteredAt: t0}
	testCases := []struct {
		name   string
		last   *Record
		next   *Record
		expect error
	}{
		{name: "first", next: &Record{InstanceID: "1", Seq: 1, State: "a", EnteredAt: t0}},
		{name: "nil", next: nil, expect: ErrInvalidRecord},
		{name: "no state", next: &Record{InstanceID: "1", EnteredAt: t0}, expect: ErrInvalidRecord},
		{name: "no time", next: &Record{InstanceID: "1", State: "a"}, expect: ErrInvalidRecord},
		{name: "next", last: last, next: &Record{InstanceID: "1", Seq: 3, State: "b", EnteredAt: t0.Add(time.Millisecond)}},
		{name: "duplicate seq", last: last, next: &Record{InstanceID: "1", Seq: 2, State: "b", EnteredAt: t0.Add(time.Second)}, expect: ErrOutOfOrder},
		{name: "same time", last: last, next: &Record{InstanceID: "1", Seq: 3, State: "b", EnteredAt: t0}, expect: ErrOutOfOrder},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckNext(tc.last, tc.next)
			if tc.expect == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expect)
		})
	}
}

func TestRecord_Clone(t *testing.T) {
	r := &Record{State: "a", Args: map[string]interface{}{"user": "u1"}}
	c := r.Clone()
	c.Args["user"] = "u2"
	assert.Equal(t, "u1", r.Args["user"])
	assert.Nil(t, (*Record)(nil).Clone())
}
