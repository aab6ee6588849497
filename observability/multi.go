package observability

import "context"

// MultiObserver fans events out to several observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver skips nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	ret := &MultiObserver{}
	for _, o := range observers {
		if o != nil {
			ret.observers = append(ret.observers, o)
		}
	}
	return ret
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, o := range m.observers {
		o.OnEvent(ctx, event)
	}
}
