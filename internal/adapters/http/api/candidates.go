// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
)

// CandidateDependencies defines the interface for mass-window queries.
type CandidateDependencies interface {
	Candidates(ctx context.Context, lo, hi float64, limit int) ([]Entry, error)
}

// CandidatesHandler handles mass-window queries.
type CandidatesHandler struct {
	deps     CandidateDependencies
	maxLimit int
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(deps CandidateDependencies, maxLimit int) *CandidatesHandler {
	return &CandidatesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetCandidates handles GET /candidates?min=M&max=N&limit=L requests.
// Results are ordered by mass ascending.
func (h *CandidatesHandler) HandleGetCandidates(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_candidates"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	lo, err := strconv.ParseFloat(q.Get("min"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	hi, err := strconv.ParseFloat(q.Get("max"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if lo > hi {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	limit := h.maxLimit
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if limit > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}

	entries, err := h.deps.Candidates(r.Context(), lo, hi, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
