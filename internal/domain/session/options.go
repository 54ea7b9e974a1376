package session

import (
	"time"

	"github.com/seluk/margo/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithDwellTick sets the dwell accumulator cadence.
func WithDwellTick(tick time.Duration) Option {
	return func(s *Session) {
		if tick > 0 {
			s.tick = tick
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}
