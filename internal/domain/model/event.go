// Package model contains domain models passed between layers.
package model

import "time"

// Particle is a single reconstructed particle within an event.
// Fields mirror the JSON schema for POST /events.
type Particle struct {
	Pt     float64 `json:"pt"`     // transverse momentum (GeV)
	Eta    float64 `json:"eta"`    // pseudorapidity
	Phi    float64 `json:"phi"`    // azimuthal angle (radians)
	Charge int     `json:"charge"` // electric charge in units of e
	Mass   float64 `json:"mass"`   // rest mass (GeV)
}

// Event is one collision event: a jagged list of particles.
// The particle count varies per event; events with fewer particles than
// the configured subset size produce no candidates.
type Event struct {
	EventID   string     `json:"event_id"`      // unique id for idempotency
	Run       string     `json:"run,omitempty"` // optional run/dataset identifier
	Particles []Particle `json:"particles"`     // per-event particle records
	TS        time.Time  `json:"ts"`            // event timestamp
}

// Candidate is one retained subset: a charge-balanced combination of
// particles together with its combined invariant mass.
type Candidate struct {
	ID      string  `json:"id"`       // unique candidate id
	EventID string  `json:"event_id"` // originating event
	Mass    float64 `json:"mass"`     // invariant mass of the summed four-vector (negative when unphysical)
	Indices []int   `json:"indices"`  // particle indices within the event, ascending
	Charge  int     `json:"charge"`   // total charge of the subset
}
