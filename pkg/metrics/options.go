// Package metrics provides Prometheus metrics for the MARGO reading service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Manager. Options validate
// their input and ignore values that would leave the manager unusable.
type Option func(*Manager)

// WithNamespace overrides the "margo" metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem overrides the "reading" metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets replaces the default buckets on the dispatch,
// scoring, and HTTP latency histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithMetricsEnabled enables or disables metrics collection.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets the sampling cadence of the system stats
// refresher.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithCustomLabels attaches constant labels to every metric. An empty map
// keeps the default.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.customLabels = labels
		}
	}
}

// WithPrometheusRegistry registers the metrics on a caller-owned registry
// instead of the package default.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
