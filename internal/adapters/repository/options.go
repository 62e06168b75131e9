// Package repository defines the candidate mass index interface and errors.
package repository

import "time"

// Option applies a configuration option to the MassIndex.
type Option func(*MassIndex)

// WithSnapshotInterval sets how often the default histogram is republished.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *MassIndex) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithHistogramGrid sets the default histogram grid used for snapshots.
func WithHistogramGrid(bins int, lo, hi float64) Option {
	return func(s *MassIndex) {
		if bins > 0 && lo < hi {
			s.histBins = bins
			s.histMin = lo
			s.histMax = hi
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MassIndex) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
