package loadgen

import "time"

// Config holds configuration for the load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumEvents  int           // Number of events to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	SampleSize int           // Events to verify candidate-by-candidate
	OutputFile string        // Output file for events
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Particle mirrors the JSON schema for one particle record.
type Particle struct {
	Pt     float64 `json:"pt"`
	Eta    float64 `json:"eta"`
	Phi    float64 `json:"phi"`
	Charge int     `json:"charge"`
	Mass   float64 `json:"mass"`
}

// Event represents an event to be submitted.
type Event struct {
	EventID   string     `json:"event_id"`
	Run       string     `json:"run"`
	Particles []Particle `json:"particles"`
	TS        string     `json:"ts"`
}

// Candidate mirrors the read shape returned by candidate queries.
type Candidate struct {
	ID      string  `json:"id"`
	EventID string  `json:"event_id"`
	Mass    float64 `json:"mass"`
	Indices []int   `json:"indices"`
	Charge  int     `json:"charge"`
}

// Histogram mirrors the binned-mass response.
type Histogram struct {
	Bins      int     `json:"bins"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Counts    []int64 `json:"counts"`
	Underflow int64   `json:"underflow"`
	Overflow  int64   `json:"overflow"`
	Total     int64   `json:"total"`
}

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated    int
	EventsSubmitted    int
	EventsSuccessful   int
	EventsDuplicate    int
	EventsFailed       int
	CandidatesExpected int
	CandidatesIndexed  int64
	EventsVerified     int
	EventsMismatched   int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
