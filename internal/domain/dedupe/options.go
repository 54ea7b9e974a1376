// Package dedupe tracks seen capture-event IDs for at-most-once apply.
package dedupe

// Option applies a configuration option to the ring deduper.
type Option func(*ringDeduper)

// WithMaxSize sets the dedupe window size.
// maxSize > 0 bounds the window with oldest-first eviction;
// maxSize <= 0 keeps every id with no eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
