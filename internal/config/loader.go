package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if KINEMA_CONFIG is set
//  3. env (prefix KINEMA_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("KINEMA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: KINEMA_ADDR, KINEMA_QUEUE_SIZE, ...
	// Map env keys like KINEMA_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("KINEMA_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "kinema_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot run with.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.SubsetSize < 2 {
		return fmt.Errorf("%w: subset_size must be at least 2", ErrInvalidConfig)
	}
	if c.HistBins < 1 || c.HistMin >= c.HistMax {
		return fmt.Errorf("%w: histogram grid requires hist_bins >= 1 and hist_min < hist_max", ErrInvalidConfig)
	}
	if c.MaxCandidatesLimit < 1 {
		return fmt.Errorf("%w: max_candidates_limit must be positive", ErrInvalidConfig)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 || strings.TrimSpace(c.KafkaTopic) == "" {
			return fmt.Errorf("%w: kafka_enabled requires kafka_brokers and kafka_topic", ErrInvalidConfig)
		}
	}
	return nil
}
