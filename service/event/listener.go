package event

import (
	"context"
	"errors"
	"log"
)

// Listener drains a publisher's queue into a handler on its own goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	cancel    context.CancelFunc
}

// NewListener creates a listener; call Start to begin consuming.
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	return &Listener[T]{publisher: publisher, handler: handler}
}

// Start begins consuming events until Stop.
func (l *Listener[T]) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go func() {
		for {
			anEvent, err := l.publisher.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("event listener: %v", err)
				continue
			}
			l.handler(anEvent)
		}
	}()
}

// Stop ends consumption.
func (l *Listener[T]) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}
