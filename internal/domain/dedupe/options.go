// Package dedupe defines the interface for idempotency tracking.
package dedupe

// Option applies a configuration option to the deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds how many IDs are kept in memory.
// A size of zero or below disables eviction entirely.
func WithMaxSize(size int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = size
	}
}
