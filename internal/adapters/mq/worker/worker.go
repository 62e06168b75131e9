// Package worker defines worker contracts for asynchronous combination and indexing.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/kinema/internal/domain/model"
	"github.com/okian/kinema/pkg/logger"
	"github.com/okian/kinema/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = model.Event

// Combiner produces invariant-mass candidates for one event.
type Combiner interface {
	Combine(ctx context.Context, e model.Event) ([]model.Candidate, error)
	SubsetSize() int
}

// Indexer stores candidates produced by the workers.
type Indexer interface {
	Insert(ctx context.Context, c model.Candidate) (bool, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events and writes candidates using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing events.
type InMemoryWorker struct {
	queue    Queue
	combiner Combiner
	indexer  Indexer
	name     string

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, combiner Combiner, indexer Indexer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		combiner: combiner,
		indexer:  indexer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker. Safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent handles a single event: enumerate candidates and index them.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	if len(event.Particles) < w.combiner.SubsetSize() {
		// C(n,k) is zero below k particles; nothing to combine.
		metrics.RecordEventSkipped()
		w.logger.Debug(ctx, "event below subset size, skipping",
			logger.String("eventID", event.EventID),
			logger.Int("particles", len(event.Particles)),
		)
		return nil
	}

	combineStart := time.Now()
	candidates, err := w.combiner.Combine(ctx, event)
	metrics.RecordCombineLatency(float64(time.Since(combineStart).Milliseconds()))

	if err != nil {
		metrics.RecordCombineError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "combine_error")
		w.logger.Error(ctx, "combination failed for event",
			logger.String("eventID", event.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to combine event %s: %w", event.EventID, err)
	}

	for i := range candidates {
		if _, err := w.indexer.Insert(ctx, candidates[i]); err != nil {
			metrics.RecordIndexError()
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "index_error")
			w.logger.Error(ctx, "index insert failed for candidate",
				logger.String("candidateID", candidates[i].ID),
				logger.Error(err),
			)
			return fmt.Errorf("index insert failed: %w", err)
		}
	}

	metrics.RecordCandidatesFound(len(candidates))
	metrics.RecordEventIngested()

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	combiner Combiner
	indexer  Indexer

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, combiner Combiner, indexer Indexer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		combiner: combiner,
		indexer:  indexer,
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			combiner,
			indexer,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop stops all workers without closing the queue. In-flight events stay
// queued; safe to call alongside or after Shutdown.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()

	for _, worker := range p.workers {
		if err := worker.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker stop timed out", logger.String("worker", worker.name))
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new events
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
