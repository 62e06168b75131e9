// Package repository defines the candidate mass index interface and errors.
package repository

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kinema/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: mass ASC, then candidate ID ASC (deterministic). In-order
// traversal therefore yields candidates from lightest to heaviest, which
// makes mass-window queries a bounded in-order walk.

// massScale controls fixed-point scaling from float64.
// Nine decimal places comfortably cover GeV-scale masses in int64.
const massScale = 1_000_000_000

type massFP int64

// toFixedPoint quantizes a stored mass to the nearest fixed-point value.
func toFixedPoint(x float64) massFP {
	return quantize(x, math.Round)
}

// Query bounds quantize toward the inside of the window: a lower bound
// rounds up and an upper bound rounds down, so no candidate whose stored
// mass lies outside [lo, hi] is ever returned.
func lowerBoundFP(x float64) massFP {
	return quantize(x, math.Ceil)
}

func upperBoundFP(x float64) massFP {
	return quantize(x, math.Floor)
}

func quantize(x float64, round func(float64) float64) massFP {
	switch {
	case math.IsNaN(x):
		return 0
	case math.IsInf(x, 1):
		return massFP(math.MaxInt64)
	case math.IsInf(x, -1):
		return massFP(math.MinInt64)
	}

	scaled := x * massScale
	if scaled > float64(math.MaxInt64) {
		return massFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return massFP(math.MinInt64)
	}
	return massFP(round(scaled))
}

// record stores the fixed-point mass plus metadata for one candidate.
type record struct {
	mass    massFP
	eventID string
	indices []int
	charge  int
}

// treap node
type node struct {
	id    string
	mass  massFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aMass, aID) should appear before (bMass, bID)
// in the index (lighter candidates first).
func less(aMass massFP, aID string, bMass massFP, bID string) bool {
	if aMass != bMass {
		return aMass < bMass
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, mass massFP, prio uint64) *node {
	if n == nil {
		return &node{id: id, mass: mass, prio: prio, size: 1}
	}
	if less(mass, id, n.mass, n.id) {
		n.left = insert(n.left, id, mass, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, mass, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// collectRange appends up to limit entries with mass in [lo, hi],
// in index order (mass ASC, id ASC).
func collectRange(n *node, lo, hi massFP, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}

	// Prune subtrees entirely outside the window.
	if n.mass >= lo {
		collectRange(n.left, lo, hi, limit, records, out)
	}

	if len(*out) < limit && n.mass >= lo && n.mass <= hi {
		if rec, ok := records[n.id]; ok {
			*out = append(*out, entryFromRecord(n.id, rec))
		}
	}

	if len(*out) < limit && n.mass <= hi {
		collectRange(n.right, lo, hi, limit, records, out)
	}
}

func entryFromRecord(id string, rec record) Entry {
	return Entry{
		ID:      id,
		EventID: rec.eventID,
		Mass:    float64(rec.mass) / massScale,
		Indices: rec.indices,
		Charge:  rec.charge,
	}
}

// MassIndex is the treap-backed Store implementation.
type MassIndex struct {
	mu      sync.RWMutex
	root    *node
	byID    map[string]record
	byEvent map[string][]string // event id -> candidate ids, insertion order

	prng *rand.Rand // treap priorities; guarded by mu

	// Default histogram grid, published periodically as a snapshot.
	snapshotInterval time.Duration
	histBins         int
	histMin          float64
	histMax          float64

	snapshot atomic.Pointer[Histogram]

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMassIndex constructs a mass index with configuration options.
func NewMassIndex(ctx context.Context, opts ...Option) *MassIndex {
	s := &MassIndex{
		snapshotInterval:      time.Second,
		metricsUpdateInterval: 5 * time.Second,
		histBins:              120,
		histMin:               0,
		histMax:               300,
		byID:                  make(map[string]record),
		byEvent:               make(map[string][]string),
		prng:                  rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // priorities only need to be well mixed, not secret
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startPeriodicSnapshots(ctx)
	s.startMetricsUpdater(ctx)

	return s
}

// startPeriodicSnapshots starts a background goroutine that publishes the
// default histogram at the configured interval.
func (s *MassIndex) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

// publishSnapshot rebuilds and publishes the default-grid histogram.
func (s *MassIndex) publishSnapshot() {
	start := time.Now()

	s.mu.RLock()
	h := s.histogramLocked(s.histBins, s.histMin, s.histMax)
	s.mu.RUnlock()

	s.snapshot.Store(&h)

	metrics.RecordIndexSnapshotRebuildDuration(float64(time.Since(start).Milliseconds()))
}

// Close gracefully shuts down the background goroutines.
func (s *MassIndex) Close() error {
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// Insert implements Store.Insert with O(log n) expected time.
func (s *MassIndex) Insert(ctx context.Context, e Entry) (bool, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordIndexInsertLatency(float64(latency))
	}()

	fp := toFixedPoint(e.Mass)

	s.mu.Lock()
	if _, ok := s.byID[e.ID]; ok {
		s.mu.Unlock()
		return false, nil
	}
	s.byID[e.ID] = record{mass: fp, eventID: e.EventID, indices: e.Indices, charge: e.Charge}
	s.byEvent[e.EventID] = append(s.byEvent[e.EventID], e.ID)
	s.root = insert(s.root, e.ID, fp, s.prng.Uint64())
	total := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateIndexCandidatesTotal(total)
	return true, nil
}

// Range returns candidates with mass in [lo, hi] ordered by mass ascending.
func (s *MassIndex) Range(ctx context.Context, lo, hi float64, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordIndexQueryLatency(float64(latency))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		metrics.RecordErrorByComponent("repository", "invalid_range")
		return nil, ErrInvalidRange
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, limit)
	collectRange(s.root, lowerBoundFP(lo), upperBoundFP(hi), limit, s.byID, &out)
	return out, nil
}

// Histogram bins all indexed masses into the requested grid. When the grid
// matches the configured default and a snapshot has been published, the
// cached snapshot is returned instead of rebinning.
func (s *MassIndex) Histogram(ctx context.Context, bins int, lo, hi float64) (Histogram, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordIndexQueryLatency(float64(latency))
	}()

	if bins < 1 || math.IsNaN(lo) || math.IsNaN(hi) || lo >= hi {
		metrics.RecordErrorByComponent("repository", "invalid_histogram")
		return Histogram{}, ErrInvalidHistogram
	}

	if bins == s.histBins && lo == s.histMin && hi == s.histMax {
		if snap := s.snapshot.Load(); snap != nil {
			return *snap, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.histogramLocked(bins, lo, hi), nil
}

// histogramLocked bins every indexed mass. Caller must hold at least a
// read lock.
func (s *MassIndex) histogramLocked(bins int, lo, hi float64) Histogram {
	h := Histogram{
		Bins:   bins,
		Min:    lo,
		Max:    hi,
		Counts: make([]int64, bins),
	}
	width := (hi - lo) / float64(bins)
	for _, rec := range s.byID {
		m := float64(rec.mass) / massScale
		switch {
		case m < lo:
			h.Underflow++
		case m >= hi:
			h.Overflow++
		default:
			// Rounding in (m-lo)/width can land exactly on bins even
			// though m < hi; such masses belong to the last bin.
			idx := int((m - lo) / width)
			if idx >= bins {
				idx = bins - 1
			}
			h.Counts[idx]++
		}
		h.Total++
	}
	return h
}

// ByEvent returns the candidates produced by one event in insertion order.
func (s *MassIndex) ByEvent(ctx context.Context, eventID string) ([]Entry, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordIndexQueryLatency(float64(latency))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.byEvent[eventID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrNotFound
	}

	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if rec, exists := s.byID[id]; exists {
			out = append(out, entryFromRecord(id, rec))
		}
	}
	return out, nil
}

// Count returns the total number of indexed candidates.
func (s *MassIndex) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// EventCount returns the number of distinct events with candidates.
func (s *MassIndex) EventCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEvent)
}

// startMetricsUpdater starts a background goroutine that refreshes index gauges.
func (s *MassIndex) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

// updateMetrics refreshes the index-level gauges.
func (s *MassIndex) updateMetrics() {
	s.mu.RLock()
	candidates := len(s.byID)
	events := len(s.byEvent)
	s.mu.RUnlock()

	metrics.UpdateIndexCandidatesTotal(candidates)
	metrics.UpdateEventsIndexed(events)
}
