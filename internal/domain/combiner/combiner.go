// Package combiner enumerates charge-balanced particle subsets and computes
// their combined invariant mass.
package combiner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/kinema/internal/domain/model"
	"github.com/okian/kinema/pkg/fourvec"
)

// Default combination configuration constants.
const (
	defaultSubsetSize  = 4
	defaultTotalCharge = 0

	// ctxCheckStride bounds how many subsets are examined between
	// context-cancellation checks inside a single event.
	ctxCheckStride = 1 << 12
)

// Combiner produces invariant-mass candidates for one event.
type Combiner interface {
	// Combine enumerates all subsets of the event's particles and returns
	// a candidate for every subset whose charges sum to the configured
	// total. Events with fewer particles than the subset size yield no
	// candidates and no error.
	Combine(ctx context.Context, e model.Event) ([]model.Candidate, error)
}

// SubsetCombiner implements Combiner by exhaustive k-subset enumeration.
type SubsetCombiner struct {
	subsetSize  int
	totalCharge int
}

// NewSubsetCombiner creates a combiner with configuration options.
func NewSubsetCombiner(opts ...Option) *SubsetCombiner {
	c := &SubsetCombiner{
		subsetSize:  defaultSubsetSize,
		totalCharge: defaultTotalCharge,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SubsetSize returns the configured combination size.
func (c *SubsetCombiner) SubsetSize() int { return c.subsetSize }

// Combine implements Combiner.
//
// Subsets are visited in lexicographic index order, so the returned
// candidates are deterministic for a given event.
func (c *SubsetCombiner) Combine(ctx context.Context, e model.Event) ([]model.Candidate, error) {
	n := len(e.Particles)
	k := c.subsetSize
	if n < k {
		// C(n,k) is zero below k particles; not an error.
		return nil, nil
	}

	// Convert each particle to Cartesian components once per event.
	vecs := make([]fourvec.Vec, n)
	for i, p := range e.Particles {
		vecs[i] = fourvec.FromPtEtaPhiM(p.Pt, p.Eta, p.Phi, p.Mass)
	}

	var out []model.Candidate

	// Iterative lexicographic k-combination enumeration.
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}

	visited := 0
	for {
		visited++
		if visited%ctxCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("combination enumeration cancelled: %w", err)
			}
		}

		charge := 0
		for _, i := range idx {
			charge += e.Particles[i].Charge
		}
		if charge == c.totalCharge {
			sum := vecs[idx[0]]
			for _, i := range idx[1:] {
				sum = sum.Add(vecs[i])
			}
			out = append(out, model.Candidate{
				ID:      candidateID(e.EventID, idx),
				EventID: e.EventID,
				Mass:    sum.Mass(),
				Indices: append([]int(nil), idx...),
				Charge:  charge,
			})
		}

		// Advance to the next combination; stop after the last one.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}

	return out, nil
}

// CombineAll runs Combine over a batch of events and concatenates the
// results. It exists for whole-dataset passes (load tests, benchmarks);
// the service path processes events one at a time off the queue.
func (c *SubsetCombiner) CombineAll(ctx context.Context, events []model.Event) ([]model.Candidate, error) {
	var out []model.Candidate
	for i := range events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch combination cancelled: %w", err)
		}
		cands, err := c.Combine(ctx, events[i])
		if err != nil {
			return nil, err
		}
		out = append(out, cands...)
	}
	return out, nil
}

// candidateID derives a deterministic candidate id from the event id and
// the subset's particle indices.
func candidateID(eventID string, idx []int) string {
	var b strings.Builder
	b.WriteString(eventID)
	for _, i := range idx {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// Choose returns C(n,k), the number of k-subsets of n items.
// Used by callers to size buffers and by tests to assert subset counts.
func Choose(n, k int) int {
	if k < 0 || n < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 1; i <= k; i++ {
		result = result * (n - k + i) / i
	}
	return result
}
