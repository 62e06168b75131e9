package repository

import "errors"

// Sentinel kinds for mass index errors.
var (
	ErrNotFound         = errors.New("event not found")
	ErrInvalidRange     = errors.New("invalid mass range")
	ErrInvalidLimit     = errors.New("invalid range limit")
	ErrInvalidHistogram = errors.New("invalid histogram parameters")
)
