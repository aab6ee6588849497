package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Listener drains a publisher on a background goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), logger *slog.Logger) *Listener[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins consuming until Stop is called.
func (l *Listener[T]) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go func() {
		defer close(l.done)
		for {
			event, err := l.publisher.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				l.logger.Warn("failed to consume event", "error", err)
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}

// Stop cancels consumption and waits for the goroutine to exit.
func (l *Listener[T]) Stop() {
	l.once.Do(func() {
		if l.cancel == nil {
			close(l.done)
			return
		}
		l.cancel()
	})
	<-l.done
}
