// Package memory provides the in-process queue implementation backing the
// scheduler event bus.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/strideos/stride/internal/idgen"
	"github.com/strideos/stride/service/messaging"
)

// Config for the memory queue.
type Config struct {
	// MaxRedeliveries bounds how often a nacked message is requeued before
	// it is dropped.
	MaxRedeliveries int
	// RedeliveryDelay is the pause before a nacked message reappears.
	RedeliveryDelay time.Duration
	// Buffer is the channel capacity.
	Buffer int
}

// DefaultConfig returns a standard memory queue configuration.
func DefaultConfig() Config {
	return Config{
		MaxRedeliveries: 3,
		RedeliveryDelay: 50 * time.Millisecond,
		Buffer:          256,
	}
}

// Queue implements messaging.Queue over a buffered channel.
type Queue[T any] struct {
	config   Config
	messages chan *message[T]
}

type message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	deliveries int
	mu         sync.Mutex
	settled    bool
}

// NewQueue creates a memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	return &Queue[T]{
		config:   config,
		messages: make(chan *message[T], config.Buffer),
	}
}

// Publish adds a payload to the queue.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &message[T]{id: idgen.New(), payload: *t, queue: q}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks for the next message or context end.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of undelivered messages.
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// T returns the message payload.
func (m *message[T]) T() *T {
	return &m.payload
}

// Ack settles the message; settling twice is an error.
func (m *message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %s already settled", m.id)
	}
	m.settled = true
	return nil
}

// Nack settles the message and schedules redelivery until the redelivery
// budget is spent.
func (m *message[T]) Nack(_ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %s already settled", m.id)
	}
	m.settled = true
	m.deliveries++
	if m.deliveries > m.queue.config.MaxRedeliveries {
		return nil
	}
	requeued := &message[T]{
		id:         m.id,
		payload:    m.payload,
		queue:      m.queue,
		deliveries: m.deliveries,
	}
	go func() {
		time.Sleep(m.queue.config.RedeliveryDelay)
		m.queue.messages <- requeued
	}()
	return nil
}

// ensure Queue implements messaging.Queue
var _ messaging.Queue[any] = (*Queue[any])(nil)
