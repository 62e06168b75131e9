// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
)

// HistogramDependencies defines the interface for histogram queries.
type HistogramDependencies interface {
	Histogram(ctx context.Context, bins int, lo, hi float64) (Histogram, error)
	DefaultHistogramGrid() (bins int, lo, hi float64)
}

// HistogramHandler handles binned mass-spectrum queries.
type HistogramHandler struct {
	deps HistogramDependencies
}

// NewHistogramHandler creates a new histogram handler.
func NewHistogramHandler(deps HistogramDependencies) *HistogramHandler {
	return &HistogramHandler{deps: deps}
}

// HandleGetHistogram handles GET /histogram?bins=B&min=M&max=N requests.
// Omitted parameters fall back to the configured grid.
func (h *HistogramHandler) HandleGetHistogram(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_histogram"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	bins, lo, hi := h.deps.DefaultHistogramGrid()

	q := r.URL.Query()
	var err error
	if binsStr := q.Get("bins"); binsStr != "" {
		bins, err = strconv.Atoi(binsStr)
		if err != nil || bins < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if loStr := q.Get("min"); loStr != "" {
		lo, err = strconv.ParseFloat(loStr, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	if hiStr := q.Get("max"); hiStr != "" {
		hi, err = strconv.ParseFloat(hiStr, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	if lo >= hi {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	hist, err := h.deps.Histogram(r.Context(), bins, lo, hi)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, hist)
}
