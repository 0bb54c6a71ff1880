package scheduler

import "github.com/strideos/stride/service/event"

// Option customises the scheduler service.
type Option func(*Service)

// WithEventService attaches the event bus the loop publishes rounds to.
func WithEventService(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}
