package memory

import (
	"context"
	"sync"

	"github.com/viant/fixflow/service/audit"
)

// Trail keeps audit records in memory, one slice per instance.
type Trail struct {
	mux     sync.RWMutex
	records map[string][]*audit.Record
}

var _ audit.Trail = (*Trail)(nil)

func (t *Trail) Append(_ context.Context, record *audit.Record) error {
	t.mux.Lock()
	defer t.mux.Unlock()
	var last *audit.Record
	if record != nil {
		if existing := t.records[record.InstanceID]; len(existing) > 0 {
			last = existing[len(existing)-1]
		}
	}
	if err := audit.CheckNext(last, record); err != nil {
		return err
	}
	t.records[record.InstanceID] = append(t.records[record.InstanceID], record.Clone())
	return nil
}

func (t *Trail) Latest(_ context.Context, instanceID, state string) (*audit.Record, error) {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return audit.EntryFor(t.records[instanceID], state).Clone(), nil
}

func (t *Trail) List(_ context.Context, instanceID string) ([]*audit.Record, error) {
	t.mux.RLock()
	defer t.mux.RUnlock()
	records := t.records[instanceID]
	ret := make([]*audit.Record, len(records))
	for i, record := range records {
		ret[i] = record.Clone()
	}
	return ret, nil
}

// New creates an empty in-memory trail.
func New() *Trail {
	return &Trail{records: map[string][]*audit.Record{}}
}
