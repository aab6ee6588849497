package audit

import (
	"time"
)

// Record marks the moment an instance entered a state. Records are never
// modified once appended.
type Record struct {
	InstanceID string                 `json:"instanceId"`
	Seq        int                    `json:"seq"`
	State      string                 `json:"state"`
	Event      string                 `json:"event,omitempty"`
	From       string                 `json:"from,omitempty"`
	EnteredAt  time.Time              `json:"enteredAt"`
	Args       map[string]interface{} `json:"args,omitempty"`
}

// Clone returns a copy safe to hand out to callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	ret := *r
	if r.Args != nil {
		ret.Args = make(map[string]interface{}, len(r.Args))
		for k, v := range r.Args {
			ret.Args[k] = v
		}
	}
	return &ret
}

// EntryFor returns the last record in records that entered state, or nil.
func EntryFor(records []*Record, state string) *Record {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].State == state {
			return records[i]
		}
	}
	return nil
}
