// Package service provides the core analysis service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/kinema/internal/adapters/mq/kafka"
	eventqueue "github.com/okian/kinema/internal/adapters/mq/queue"
	workerpool "github.com/okian/kinema/internal/adapters/mq/worker"
	"github.com/okian/kinema/internal/adapters/repository"
	"github.com/okian/kinema/internal/domain/combiner"
	"github.com/okian/kinema/internal/domain/dedupe"
	"github.com/okian/kinema/internal/domain/model"
	"github.com/okian/kinema/pkg/logger"
	"github.com/okian/kinema/pkg/metrics"
)

// indexAdapter adapts the repository.Store interface to worker.Indexer.
type indexAdapter struct {
	store repository.Store
}

func (a *indexAdapter) Insert(ctx context.Context, c model.Candidate) (bool, error) {
	return a.store.Insert(ctx, repository.Entry{
		ID:      c.ID,
		EventID: c.EventID,
		Mass:    c.Mass,
		Indices: c.Indices,
		Charge:  c.Charge,
	})
}

// Service wires the ingest, combination, and query paths together.
type Service struct {
	mu sync.RWMutex

	// Core components
	index       repository.Store
	deduper     dedupe.Deduper
	eventQueue  eventqueue.Queue
	combiner    *combiner.SubsetCombiner
	workerPool  *workerpool.Pool
	kafkaSource *kafka.Source

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	subsetSize         int
	totalCharge        int
	histBins           int
	histMin            float64
	histMax            float64
	maxCandidatesLimit int
	snapshotInterval   time.Duration

	kafkaEnabled bool
	kafkaBrokers []string
	kafkaTopic   string
	kafkaGroup   string

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:        0, // pool falls back to CPU-derived count
		queueSize:          100000,
		dedupeSize:         50000,
		subsetSize:         4,
		totalCharge:        0,
		histBins:           120,
		histMin:            0,
		histMax:            300,
		maxCandidatesLimit: 1000,
		snapshotInterval:   time.Second,
		stopCh:             make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting analysis service...")

	s.index = repository.NewMassIndex(ctx,
		repository.WithSnapshotInterval(s.snapshotInterval),
		repository.WithHistogramGrid(s.histBins, s.histMin, s.histMax),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.combiner = combiner.NewSubsetCombiner(
		combiner.WithSubsetSize(s.subsetSize),
		combiner.WithTotalCharge(s.totalCharge),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.combiner, &indexAdapter{store: s.index})
	s.workerPool.Start(ctx)

	if s.kafkaEnabled {
		source, err := kafka.NewSource(s.kafkaBrokers, s.kafkaTopic, s.deduper, s.eventQueue,
			kafka.WithGroupID(s.kafkaGroup),
		)
		if err != nil {
			return err
		}
		s.kafkaSource = source
		go s.kafkaSource.Run(ctx)
		s.logger.Info(ctx, "kafka ingest enabled",
			logger.String("topic", s.kafkaTopic),
			logger.String("group", s.kafkaGroup),
		)
	}

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("subsetSize", s.subsetSize),
		logger.Int("totalCharge", s.totalCharge),
	)

	return nil
}

// Stop gracefully shuts down the service. The queue is closed before the
// workers are waited on so in-flight events drain instead of being dropped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping analysis service...")

	if s.kafkaSource != nil {
		if err := s.kafkaSource.Stop(ctx); err != nil {
			s.logger.Error(ctx, "kafka source stop failed", logger.Error(err))
		}
	}

	// Shutdown closes the queue first, then waits for the workers.
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	if s.index != nil {
		if closer, ok := s.index.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
// Returns true if the event was already seen, false if it was newly recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an event ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits an event for asynchronous processing.
// Returns false when the queue rejected the event (backpressure).
func (s *Service) Enqueue(ctx context.Context, e model.Event) bool {
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}

	ok := s.eventQueue.Enqueue(ctx, e)
	if ok {
		metrics.UpdateQueueSize(s.eventQueue.Len(ctx))
	}
	return ok
}

// Candidates returns up to limit candidates with mass in [lo, hi],
// lightest first.
func (s *Service) Candidates(ctx context.Context, lo, hi float64, limit int) ([]repository.Entry, error) {
	return s.index.Range(ctx, lo, hi, limit)
}

// EventCandidates returns the candidates produced by one event.
func (s *Service) EventCandidates(ctx context.Context, eventID string) ([]repository.Entry, error) {
	return s.index.ByEvent(ctx, eventID)
}

// Histogram bins all indexed masses into the requested grid.
func (s *Service) Histogram(ctx context.Context, bins int, lo, hi float64) (repository.Histogram, error) {
	return s.index.Histogram(ctx, bins, lo, hi)
}

// MaxCandidatesLimit returns the configured cap for range queries.
func (s *Service) MaxCandidatesLimit() int {
	return s.maxCandidatesLimit
}

// DefaultHistogramGrid returns the grid used when a query omits parameters.
func (s *Service) DefaultHistogramGrid() (bins int, lo, hi float64) {
	return s.histBins, s.histMin, s.histMax
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"subsetSize":  s.subsetSize,
		"totalCharge": s.totalCharge,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		totalCandidates := s.index.Count(ctx)
		totalEvents := s.index.EventCount(ctx)

		stats["queueLength"] = queueLen
		stats["totalCandidates"] = totalCandidates
		stats["totalEvents"] = totalEvents

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateIndexCandidatesTotal(totalCandidates)
		metrics.UpdateEventsIndexed(totalEvents)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
