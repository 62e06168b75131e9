package kafka

import "errors"

// Package-level errors for the Kafka event source.
var (
	// ErrInvalidBrokers indicates missing broker addresses or topic.
	ErrInvalidBrokers = errors.New("invalid kafka brokers or topic")

	// ErrDecode indicates a message payload that is not a valid event.
	ErrDecode = errors.New("event decode failed")

	// ErrStopTimeout indicates the consume loop did not exit in time.
	ErrStopTimeout = errors.New("consume loop did not stop in time")
)
