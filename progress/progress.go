package progress

import (
	"time"
)

// Status of a single step.
type Status string

const (
	StatusDone    Status = "done"
	StatusCurrent Status = "current"
	StatusPending Status = "pending"
)

// Step is one canonical step with its latest entry time, if any.
type Step struct {
	State     string     `json:"state"`
	Status    Status     `json:"status"`
	EnteredAt *time.Time `json:"enteredAt,omitempty"`
}

// Progress summarises how far an instance advanced along its steps.
type Progress struct {
	Current   string  `json:"current"`
	Steps     []*Step `json:"steps"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   int     `json:"percent"`
}

// Build derives progress from the canonical steps, the current state and
// the latest entry time per step (nil entries mean never entered). The last
// step counts as completed once it is current.
func Build(steps []string, current string, entered []*time.Time) *Progress {
	ret := &Progress{Current: current, Total: len(steps)}
	position := -1
	for i, state := range steps {
		if state == current {
			position = i
		}
	}
	for i, state := range steps {
		step := &Step{State: state, Status: StatusPending}
		if i < len(entered) {
			step.EnteredAt = entered[i]
		}
		switch {
		case position == -1 && step.EnteredAt != nil:
			step.Status = StatusDone
		case i < position:
			step.Status = StatusDone
		case i == position:
			step.Status = StatusCurrent
		}
		if step.Status == StatusDone {
			ret.Completed++
		}
		ret.Steps = append(ret.Steps, step)
	}
	if position >= 0 && position == len(steps)-1 {
		ret.Completed++
	}
	if ret.Total > 0 {
		ret.Percent = ret.Completed * 100 / ret.Total
	}
	return ret
}
