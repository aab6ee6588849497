package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/viant/fixflow/internal/idgen"
	"github.com/viant/fixflow/service/messaging"
)

var errProcessed = errors.New("messaging: message already processed")

// Config for memory queue implementation
type Config struct {
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
	DeadLetter  bool          `json:"deadLetter" yaml:"deadLetter"`
	QueueBuffer int           `json:"queueBuffer" yaml:"queueBuffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message is a queued payload with its delivery state.
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempts  int
	mu        sync.Mutex
	processed bool
}

func (m *Message[T]) ID() string { return m.id }

// T returns the message payload
func (m *Message[T]) T() *T { return &m.payload }

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return errProcessed
	}
	m.processed = true
	return nil
}

// Nack requeues the message after RetryDelay until MaxRetries is exhausted,
// then moves it to the dead letter list when enabled.
func (m *Message[T]) Nack(error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return errProcessed
	}
	m.processed = true
	q := m.queue
	if m.attempts < q.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, queue: q, attempts: m.attempts + 1}
		time.AfterFunc(q.config.RetryDelay, func() { _ = q.enqueue(retry) })
		return nil
	}
	if q.config.DeadLetter {
		q.dlqMu.Lock()
		q.dlq = append(q.dlq, m)
		q.dlqMu.Unlock()
	}
	return nil
}

// Queue is a bounded in-memory messaging.Queue; Publish never blocks.
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	dlq      []*Message[T]
	dlqMu    sync.Mutex
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.enqueue(&Message[T]{id: idgen.New(), payload: *t, queue: q})
}

func (q *Queue[T]) enqueue(msg *Message[T]) error {
	select {
	case q.messages <- msg:
		return nil
	default:
		return messaging.ErrQueueFull
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
