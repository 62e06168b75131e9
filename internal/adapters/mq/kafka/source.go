// Package kafka consumes collision events from a Kafka topic and feeds
// them into the processing queue. It is an optional ingest path next to
// the HTTP API and shares the same dedupe and backpressure rules.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/kinema/internal/domain/model"
	"github.com/okian/kinema/pkg/logger"
	"github.com/okian/kinema/pkg/metrics"
)

// Default consumer configuration constants.
const (
	defaultGroupID    = "kinema-analysis"
	defaultMinBytes   = 1
	defaultMaxBytes   = 10 << 20 // 10 MiB
	defaultMaxWait    = 500 * time.Millisecond
	sourceStopTimeout = 10 * time.Second
	retryBackpressure = 100 * time.Millisecond
)

// Deduper filters events that were already accepted on another path.
type Deduper interface {
	SeenAndRecord(ctx context.Context, id string) bool
}

// Queue receives decoded events for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, e model.Event) bool
}

// reader abstracts *kafkago.Reader for testing.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Source pumps events from a Kafka topic into the queue.
type Source struct {
	reader  reader
	deduper Deduper
	queue   Queue

	groupID     string
	stopTimeout time.Duration

	done    chan struct{}
	stopMu  sync.Mutex
	stopped bool

	logger logger.Logger
}

// NewSource creates a consumer for the given brokers and topic.
func NewSource(brokers []string, topic string, deduper Deduper, queue Queue, opts ...Option) (*Source, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, ErrInvalidBrokers
	}

	s := &Source{
		deduper:     deduper,
		queue:       queue,
		groupID:     defaultGroupID,
		stopTimeout: sourceStopTimeout,
		done:        make(chan struct{}),
		logger:      logger.Get().Named("kafka-source"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.reader == nil {
		s.reader = kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  s.groupID,
			MinBytes: defaultMinBytes,
			MaxBytes: defaultMaxBytes,
			MaxWait:  defaultMaxWait,
		})
	}

	return s, nil
}

// Run consumes messages until ctx is canceled or Stop is called.
func (s *Source) Run(ctx context.Context) {
	defer close(s.done)

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				// Reader was closed, loop is done.
				return
			}
			metrics.RecordErrorByComponent("kafka", "fetch_error")
			s.logger.Error(ctx, "fetch failed", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackpressure):
			}
			continue
		}

		metrics.RecordKafkaMessage()

		event, err := decodeEvent(msg.Value)
		if err != nil {
			metrics.RecordKafkaDecodeError()
			s.logger.Warn(ctx, "dropping undecodable message",
				logger.Int("offset", int(msg.Offset)),
				logger.Error(err),
			)
			// Poison messages are committed so the group does not stall.
			s.commit(ctx, msg)
			continue
		}

		if s.deduper.SeenAndRecord(ctx, event.EventID) {
			metrics.RecordEventDuplicate()
			s.commit(ctx, msg)
			continue
		}

		for !s.queue.Enqueue(ctx, event) {
			// Full queue: hold the offset and retry rather than drop.
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackpressure):
			}
		}

		s.commit(ctx, msg)
	}
}

// Stop closes the underlying reader and waits for the loop to exit.
func (s *Source) Stop(ctx context.Context) error {
	s.stopMu.Lock()
	if s.stopped {
		s.stopMu.Unlock()
		return nil
	}
	s.stopped = true
	s.stopMu.Unlock()

	if err := s.reader.Close(); err != nil {
		s.logger.Error(ctx, "error closing reader", logger.Error(err))
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(s.stopTimeout):
		return fmt.Errorf("kafka source stop: %w", ErrStopTimeout)
	case <-ctx.Done():
		return fmt.Errorf("kafka source stop: %w", ctx.Err())
	}
}

func (s *Source) commit(ctx context.Context, msg kafkago.Message) {
	if err := s.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		metrics.RecordErrorByComponent("kafka", "commit_error")
		s.logger.Error(ctx, "commit failed", logger.Error(err))
	}
}

// decodeEvent parses a message payload into an event and validates it.
func decodeEvent(value []byte) (model.Event, error) {
	var event model.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if strings.TrimSpace(event.EventID) == "" {
		return model.Event{}, fmt.Errorf("%w: missing event_id", ErrDecode)
	}
	if event.TS.IsZero() {
		event.TS = time.Now().UTC()
	}
	return event, nil
}
