// Package event is the scheduler's event bus: typed publishers and listeners
// over the in-process queue, keyed by payload type.
package event

import (
	"reflect"
	"sync"

	"github.com/strideos/stride/service/messaging"
	"github.com/strideos/stride/service/messaging/memory"
)

// Service hands out one publisher and at most one listener per payload type.
type Service struct {
	queueConfig     memory.Config
	typedPublishers map[reflect.Type]any
	typedListeners  map[reflect.Type]any
	mux             sync.RWMutex
}

// New creates an event service.
func New(opts ...Option) *Service {
	ret := &Service{
		queueConfig:     memory.DefaultConfig(),
		typedPublishers: make(map[reflect.Type]any),
		typedListeners:  make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType != nil && rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// QueueOf builds a queue for the payload type.
func QueueOf[T any](s *Service) messaging.Queue[T] {
	return memory.NewQueue[T](s.queueConfig)
}

// PublisherOf returns the shared publisher for the payload type.
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	existing, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return existing.(*Publisher[T])
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if existing, ok = s.typedPublishers[key]; ok {
		return existing.(*Publisher[T])
	}
	publisher := NewPublisher[T](QueueOf[Event[T]](s))
	s.typedPublishers[key] = publisher
	return publisher
}

// ListensTo reports whether a listener is attached for the payload type.
// Producers use it to skip publication entirely when nobody consumes, so an
// unattended bus can never back-pressure the scheduler.
func ListensTo[T any](s *Service) bool {
	if s == nil {
		return false
	}
	s.mux.RLock()
	defer s.mux.RUnlock()
	_, ok := s.typedListeners[keyOf[T]()]
	return ok
}

// SetListenerOf replaces the listener for the payload type.
func SetListenerOf[T any](s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	s.mux.Lock()
	if existing, ok := s.typedListeners[key]; ok {
		existing.(*Listener[T]).Stop()
	}
	s.mux.Unlock()

	listener := NewListener[T](PublisherOf[T](s), handler)
	s.mux.Lock()
	s.typedListeners[key] = listener
	s.mux.Unlock()
	listener.Start()
}
