package service

import (
	"time"

	"github.com/okian/kinema/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSubsetSize sets how many particles are combined per candidate.
func WithSubsetSize(k int) Option {
	return func(s *Service) {
		if k >= 2 {
			s.subsetSize = k
		}
	}
}

// WithTotalCharge sets the required charge sum for kept subsets.
func WithTotalCharge(q int) Option {
	return func(s *Service) {
		s.totalCharge = q
	}
}

// WithHistogramGrid sets the default histogram grid in GeV.
func WithHistogramGrid(bins int, lo, hi float64) Option {
	return func(s *Service) {
		if bins > 0 && lo < hi {
			s.histBins = bins
			s.histMin = lo
			s.histMax = hi
		}
	}
}

// WithMaxCandidatesLimit caps the limit accepted by range queries.
func WithMaxCandidatesLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxCandidatesLimit = limit
		}
	}
}

// WithSnapshotInterval sets how often the histogram snapshot is rebuilt.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithKafka enables the Kafka ingest path.
func WithKafka(brokers []string, topic, group string) Option {
	return func(s *Service) {
		if len(brokers) > 0 && topic != "" {
			s.kafkaEnabled = true
			s.kafkaBrokers = brokers
			s.kafkaTopic = topic
			s.kafkaGroup = group
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
