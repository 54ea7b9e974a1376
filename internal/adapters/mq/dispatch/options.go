// Package dispatch runs the single consumer that applies capture events
// to the reading session.
package dispatch

import (
	"github.com/seluk/margo/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithName sets the dispatcher name for identification and logging.
func WithName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}
