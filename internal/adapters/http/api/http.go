// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/okian/kinema/internal/adapters/repository"
	"github.com/okian/kinema/internal/domain/dedupe"
	"github.com/okian/kinema/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an event for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, e model.Event) bool

	// Read operations expose the candidate index.
	Candidates(ctx context.Context, lo, hi float64, limit int) ([]Entry, error)
	EventCandidates(ctx context.Context, eventID string) ([]Entry, error)
	Histogram(ctx context.Context, bins int, lo, hi float64) (Histogram, error)

	// Query limits and defaults.
	MaxCandidatesLimit() int
	DefaultHistogramGrid() (bins int, lo, hi float64)
}

// Entry mirrors the read shape returned by candidate queries.
type Entry = repository.Entry

// Histogram mirrors the binned-mass shape returned by histogram queries.
type Histogram = repository.Histogram

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	eventsHandler          *EventsHandler
	candidatesHandler      *CandidatesHandler
	eventCandidatesHandler *EventCandidatesHandler
	histogramHandler       *HistogramHandler
	dashboardHandler       *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:          NewHealthHandler(),
		statsHandler:           NewStatsHandler(statsProvider),
		eventsHandler:          NewEventsHandler(deps),
		candidatesHandler:      NewCandidatesHandler(deps, deps.MaxCandidatesLimit()),
		eventCandidatesHandler: NewEventCandidatesHandler(deps),
		histogramHandler:       NewHistogramHandler(deps),
		dashboardHandler:       newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventCandidatesHandler.HandleGetEventCandidates, "event_candidates"))
	mux.HandleFunc("/candidates", MetricsMiddleware(s.candidatesHandler.HandleGetCandidates, "candidates"))
	mux.HandleFunc("/histogram", MetricsMiddleware(s.histogramHandler.HandleGetHistogram, "histogram"))
}

// particleRequest mirrors the OpenAPI schema for one particle record.
type particleRequest struct {
	Pt     float64 `json:"pt"`
	Eta    float64 `json:"eta"`
	Phi    float64 `json:"phi"`
	Charge int     `json:"charge"`
	Mass   float64 `json:"mass"`
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID   string            `json:"event_id"`
	Run       string            `json:"run"`
	Particles []particleRequest `json:"particles"`
	TS        string            `json:"ts"`
}

func (e eventRequest) validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return errors.New("missing event_id")
	}
	if e.Particles == nil {
		return errors.New("missing particles")
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	for _, p := range e.Particles {
		if !isFinite(p.Pt) || !isFinite(p.Eta) || !isFinite(p.Phi) || !isFinite(p.Mass) {
			return errors.New("particle fields must be finite")
		}
		if p.Pt < 0 {
			return errors.New("pt must be non-negative")
		}
		if p.Mass < 0 {
			return errors.New("mass must be non-negative")
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toModel converts a validated request to the domain event.
func (e eventRequest) toModel() model.Event {
	particles := make([]model.Particle, len(e.Particles))
	for i, p := range e.Particles {
		particles[i] = model.Particle{
			Pt:     p.Pt,
			Eta:    p.Eta,
			Phi:    p.Phi,
			Charge: p.Charge,
			Mass:   p.Mass,
		}
	}
	ts := time.Now().UTC()
	if e.TS != "" {
		ts, _ = time.Parse(time.RFC3339, e.TS)
	}
	return model.Event{
		EventID:   e.EventID,
		Run:       e.Run,
		Particles: particles,
		TS:        ts,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
