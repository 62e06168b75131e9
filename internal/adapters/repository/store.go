// Package repository defines the candidate mass index interface and errors.
package repository

import "context"

// Entry represents one indexed candidate.
type Entry struct {
	ID      string  `json:"id"`
	EventID string  `json:"event_id"`
	Mass    float64 `json:"mass"`
	Indices []int   `json:"indices"`
	Charge  int     `json:"charge"`
}

// Histogram is a fixed-bin count of candidate masses over [Min, Max).
// Masses below Min land in Underflow, at or above Max in Overflow.
type Histogram struct {
	Bins      int     `json:"bins"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Counts    []int64 `json:"counts"`
	Underflow int64   `json:"underflow"`
	Overflow  int64   `json:"overflow"`
	Total     int64   `json:"total"`
}

// Store provides read/write access to indexed candidates.
type Store interface {
	// Insert adds a candidate to the index.
	// Returns false when the candidate id is already present.
	Insert(ctx context.Context, e Entry) (bool, error)

	// Range returns up to limit candidates with mass in [lo, hi],
	// ordered by mass ascending (candidate id breaks ties).
	Range(ctx context.Context, lo, hi float64, limit int) ([]Entry, error)

	// Histogram bins all indexed masses into the requested grid.
	Histogram(ctx context.Context, bins int, lo, hi float64) (Histogram, error)

	// ByEvent returns the candidates produced by one event.
	// Returns ErrNotFound if the event contributed no candidates.
	ByEvent(ctx context.Context, eventID string) ([]Entry, error)

	// Count returns the number of candidates in the index.
	Count(ctx context.Context) int

	// EventCount returns the number of distinct events in the index.
	EventCount(ctx context.Context) int
}
