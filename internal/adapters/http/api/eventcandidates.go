// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// EventCandidateDependencies defines the interface for per-event queries.
type EventCandidateDependencies interface {
	EventCandidates(ctx context.Context, eventID string) ([]Entry, error)
}

// EventCandidatesHandler handles per-event candidate queries.
type EventCandidatesHandler struct {
	deps EventCandidateDependencies
}

// NewEventCandidatesHandler creates a new event candidates handler.
func NewEventCandidatesHandler(deps EventCandidateDependencies) *EventCandidatesHandler {
	return &EventCandidatesHandler{deps: deps}
}

// HandleGetEventCandidates handles GET /events/{event_id}/candidates requests.
func (h *EventCandidatesHandler) HandleGetEventCandidates(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event_candidates"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /events/
	path := strings.TrimPrefix(r.URL.Path, "/events/")
	eventID, ok := strings.CutSuffix(path, "/candidates")
	if !ok || eventID == "" || strings.Contains(eventID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.EventCandidates(r.Context(), eventID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
