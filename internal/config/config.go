// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Layer file and environment overrides in Load.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of combination workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SubsetSize is the number of particles combined per candidate.
	SubsetSize int `koanf:"subset_size"`

	// TotalCharge is the charge sum a kept subset must have.
	TotalCharge int `koanf:"total_charge"`

	// HistBins, HistMin, and HistMax define the default mass histogram grid in GeV.
	HistBins int     `koanf:"hist_bins"`
	HistMin  float64 `koanf:"hist_min"`
	HistMax  float64 `koanf:"hist_max"`

	// MaxCandidatesLimit caps GET /candidates?limit.
	MaxCandidatesLimit int `koanf:"max_candidates_limit"`

	// SnapshotIntervalMS controls how often the histogram snapshot is rebuilt.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// KafkaEnabled turns on the Kafka ingest path.
	KafkaEnabled bool `koanf:"kafka_enabled"`

	// KafkaBrokers lists broker addresses, e.g. localhost:9092.
	KafkaBrokers []string `koanf:"kafka_brokers"`

	// KafkaTopic is the topic holding collision events.
	KafkaTopic string `koanf:"kafka_topic"`

	// KafkaGroup is the consumer group id.
	KafkaGroup string `koanf:"kafka_group"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		EventQueueSize:     100_000,
		WorkerCount:        runtime.NumCPU() * 4,
		DedupeSize:         500_000,
		SubsetSize:         4,
		TotalCharge:        0,
		HistBins:           120,
		HistMin:            0,
		HistMax:            300,
		MaxCandidatesLimit: 1000,
		SnapshotIntervalMS: 1000,
		KafkaEnabled:       false,
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaTopic:         "collision-events",
		KafkaGroup:         "kinema-analysis",
	}
	return c
}
