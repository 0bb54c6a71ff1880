package event

import "github.com/strideos/stride/service/messaging/memory"

// Option customises the event service.
type Option func(*Service)

// WithQueueConfig overrides the queue configuration backing every typed
// publisher.
func WithQueueConfig(config memory.Config) Option {
	return func(s *Service) {
		s.queueConfig = config
	}
}
