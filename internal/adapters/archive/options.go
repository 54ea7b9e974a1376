package archive

import (
	"github.com/seluk/margo/pkg/logger"
)

// Option applies a configuration option to the Archive.
type Option func(*Archive)

// WithLogger sets the archive logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Archive) {
		if log != nil {
			a.log = log
		}
	}
}
