package memory

import (
	"github.com/viant/fixflow/runtime/instance"
	"github.com/viant/fixflow/service/dao"
	daoinstance "github.com/viant/fixflow/service/dao/instance"
	"github.com/viant/fixflow/service/dao/store"
)

// Service implements an in-memory, thread-safe store for instances.  All API
// methods work with copies to eliminate data races between goroutines.
type Service struct {
	*store.MemoryStore[string, instance.Instance]
}

var _ dao.Service[string, instance.Instance] = (*Service)(nil)

func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, instance.Instance](
			func(i *instance.Instance) string { return i.ID },
			store.WithClone[string, instance.Instance]((*instance.Instance).Clone),
			store.WithFields[string, instance.Instance](daoinstance.Fields),
		),
	}
}
