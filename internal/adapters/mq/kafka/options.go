package kafka

import (
	"time"

	"github.com/okian/kinema/pkg/logger"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithGroupID sets the consumer group id.
func WithGroupID(groupID string) Option {
	return func(s *Source) {
		if groupID != "" {
			s.groupID = groupID
		}
	}
}

// WithLogger sets a custom logger for the source.
func WithLogger(logger logger.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withReader injects a reader implementation, used in tests.
func withReader(r reader) Option {
	return func(s *Source) {
		s.reader = r
	}
}

// withStopTimeout shortens the Stop wait, used in tests.
func withStopTimeout(d time.Duration) Option {
	return func(s *Source) {
		s.stopTimeout = d
	}
}
