package syscall

import "github.com/strideos/stride/service/event"

// Option customises the syscall service.
type Option func(*Service)

// WithEventService attaches the event bus spawn and set-priority publish to.
func WithEventService(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}
