package memory

import (
	"github.com/viant/fixflow/runtime/inspection"
	"github.com/viant/fixflow/service/dao"
	"github.com/viant/fixflow/service/dao/criteria"
	"github.com/viant/fixflow/service/dao/store"
)

// Service implements an in-memory, thread-safe inspection store.
type Service struct {
	*store.MemoryStore[string, inspection.Inspection]
}

var _ dao.Service[string, inspection.Inspection] = (*Service)(nil)

func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, inspection.Inspection](
			func(i *inspection.Inspection) string { return i.ID },
			store.WithFields[string, inspection.Inspection](func(i *inspection.Inspection) criteria.Fields { return i.Field }),
		),
	}
}
