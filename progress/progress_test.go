package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	steps := []string{"ready_to_inspect", "inspected", "done"}
	testCases := []struct {
		name      string
		current   string
		entered   []*time.Time
		statuses  []Status
		completed int
		percent   int
	}{
		{
			name:     "fresh",
			current:  "ready_to_inspect",
			entered:  []*time.Time{&t0, nil, nil},
			statuses: []Status{StatusCurrent, StatusPending, StatusPending},
		},
		{
			name:      "inspected",
			current:   "inspected",
			entered:   []*time.Time{&t0, &t1, nil},
			statuses:  []Status{StatusDone, StatusCurrent, StatusPending},
			completed: 1,
			percent:   33,
		},
		{
			name:      "finished",
			current:   "done",
			entered:   []*time.Time{&t0, &t1, &t1},
			statuses:  []Status{StatusDone, StatusDone, StatusCurrent},
			completed: 3,
			percent:   100,
		},
		{
			name:      "off path",
			current:   "on_hold",
			entered:   []*time.Time{&t0, nil, nil},
			statuses:  []Status{StatusDone, StatusPending, StatusPending},
			completed: 1,
			percent:   33,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := Build(steps, tc.current, tc.entered)
			var statuses []Status
			for _, step := range actual.Steps {
				statuses = append(statuses, step.Status)
			}
			assert.Equal(t, tc.statuses, statuses)
			assert.Equal(t, tc.completed, actual.Completed)
			assert.Equal(t, tc.percent, actual.Percent)
			assert.Equal(t, 3, actual.Total)
		})
	}
}
