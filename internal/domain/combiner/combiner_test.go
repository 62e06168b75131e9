package combiner_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/okian/kinema/internal/domain/combiner"
	"github.com/okian/kinema/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// muon builds a particle with the muon rest mass.
func muon(pt, eta, phi float64, charge int) model.Particle {
	return model.Particle{Pt: pt, Eta: eta, Phi: phi, Charge: charge, Mass: 0.105658}
}

// neutralEvent returns an event whose particles alternate charge so that
// charge-balanced subsets exist.
func neutralEvent(id string, n int) model.Event {
	rng := rand.New(rand.NewSource(int64(n)))
	particles := make([]model.Particle, n)
	for i := range particles {
		charge := 1
		if i%2 == 1 {
			charge = -1
		}
		particles[i] = muon(10+rng.Float64()*40, rng.Float64()*4-2, rng.Float64()*6-3, charge)
	}
	return model.Event{EventID: id, Particles: particles}
}

func TestSubsetCombiner_Combine(t *testing.T) {
	Convey("Given a combiner with default configuration", t, func() {
		c := combiner.NewSubsetCombiner()
		ctx := context.Background()

		Convey("When the event has fewer than four particles", func() {
			e := model.Event{EventID: "evt-small", Particles: []model.Particle{
				muon(10, 0, 0, 1),
				muon(12, 0.5, 1, -1),
				muon(14, -0.5, 2, 1),
			}}

			Convey("Then no candidates and no error are returned", func() {
				cands, err := c.Combine(ctx, e)
				So(err, ShouldBeNil)
				So(cands, ShouldBeEmpty)
			})
		})

		Convey("When the event has four particles with charges {+1,+1,-1,-1}", func() {
			e := model.Event{EventID: "evt-quad", Particles: []model.Particle{
				muon(20, 0.1, 0.2, 1),
				muon(20, 0.1, 0.2, 1),
				muon(20, 0.1, 0.2, -1),
				muon(20, 0.1, 0.2, -1),
			}}

			Convey("Then exactly one candidate is retained", func() {
				cands, err := c.Combine(ctx, e)
				So(err, ShouldBeNil)
				So(len(cands), ShouldEqual, 1)
				So(cands[0].Charge, ShouldEqual, 0)
				So(cands[0].Indices, ShouldResemble, []int{0, 1, 2, 3})

				Convey("And the pooled mass of four identical particles is positive", func() {
					So(cands[0].Mass, ShouldBeGreaterThan, 0)
				})
			})
		})

		Convey("When all particles share the same charge", func() {
			e := model.Event{EventID: "evt-same", Particles: []model.Particle{
				muon(20, 0, 0, 1),
				muon(21, 0.3, 0.5, 1),
				muon(22, -0.3, 1.5, 1),
				muon(23, 0.8, 2.5, 1),
				muon(24, -0.8, -2.5, 1),
			}}

			Convey("Then no subset passes the charge filter", func() {
				cands, err := c.Combine(ctx, e)
				So(err, ShouldBeNil)
				So(cands, ShouldBeEmpty)
			})
		})

		Convey("When every subset is charge balanced", func() {
			// Two positive, two negative per any retained subset; with
			// alternating charges only some subsets qualify, so build an
			// event where charge is ignored instead.
			neutral := combiner.NewSubsetCombiner(combiner.WithTotalCharge(4))
			e := model.Event{EventID: "evt-all", Particles: []model.Particle{
				muon(20, 0, 0, 1),
				muon(21, 0.3, 0.5, 1),
				muon(22, -0.3, 1.5, 1),
				muon(23, 0.8, 2.5, 1),
				muon(24, -0.8, -2.5, 1),
				muon(25, 1.1, -1.5, 1),
			}}

			Convey("Then the candidate count equals C(n,4)", func() {
				cands, err := neutral.Combine(ctx, e)
				So(err, ShouldBeNil)
				So(len(cands), ShouldEqual, combiner.Choose(6, 4))
			})
		})

		Convey("When the same four particles appear in a different order", func() {
			base := []model.Particle{
				muon(31, 0.4, 0.1, 1),
				muon(17, -1.2, 2.2, 1),
				muon(45, 0.9, -0.7, -1),
				muon(8, 2.0, 3.0, -1),
			}
			shuffled := []model.Particle{base[2], base[0], base[3], base[1]}

			Convey("Then the candidate mass is identical", func() {
				a, err := c.Combine(ctx, model.Event{EventID: "a", Particles: base})
				So(err, ShouldBeNil)
				b, err := c.Combine(ctx, model.Event{EventID: "b", Particles: shuffled})
				So(err, ShouldBeNil)
				So(len(a), ShouldEqual, 1)
				So(len(b), ShouldEqual, 1)
				So(a[0].Mass, ShouldAlmostEqual, b[0].Mass, 1e-9)
			})
		})

		Convey("When candidate ids are derived", func() {
			e := neutralEvent("evt-id", 6)

			Convey("Then they are unique and carry the event id", func() {
				cands, err := c.Combine(ctx, e)
				So(err, ShouldBeNil)
				seen := make(map[string]bool)
				for _, cand := range cands {
					So(seen[cand.ID], ShouldBeFalse)
					seen[cand.ID] = true
					So(cand.ID, ShouldStartWith, "evt-id/")
					So(cand.EventID, ShouldEqual, "evt-id")
				}
			})
		})
	})
}

func TestSubsetCombiner_ChargeFilter(t *testing.T) {
	Convey("Given an event with mixed charges", t, func() {
		c := combiner.NewSubsetCombiner()
		e := neutralEvent("evt-mixed", 8)

		Convey("When combining", func() {
			cands, err := c.Combine(context.Background(), e)
			So(err, ShouldBeNil)

			Convey("Then a subset is retained iff its charges sum to zero", func() {
				retained := make(map[string]bool, len(cands))
				for _, cand := range cands {
					So(cand.Charge, ShouldEqual, 0)
					retained[cand.ID] = true
				}

				// Cross-check against an unfiltered enumeration: count the
				// charge-balanced subsets directly.
				balanced := 0
				n := len(e.Particles)
				for a := 0; a < n; a++ {
					for b := a + 1; b < n; b++ {
						for x := b + 1; x < n; x++ {
							for y := x + 1; y < n; y++ {
								q := e.Particles[a].Charge + e.Particles[b].Charge +
									e.Particles[x].Charge + e.Particles[y].Charge
								if q == 0 {
									balanced++
								}
							}
						}
					}
				}
				So(len(cands), ShouldEqual, balanced)
			})
		})
	})
}

func TestSubsetCombiner_Options(t *testing.T) {
	Convey("Given explicit subset size and total charge", t, func() {
		c := combiner.NewSubsetCombiner(
			combiner.WithSubsetSize(2),
			combiner.WithTotalCharge(0),
		)

		Convey("When combining a dimuon event", func() {
			e := model.Event{EventID: "evt-dimu", Particles: []model.Particle{
				muon(30, 0.5, 0.0, 1),
				muon(30, -0.5, 3.14159, -1),
				muon(10, 1.0, 1.0, 1),
			}}
			cands, err := c.Combine(context.Background(), e)

			Convey("Then only opposite-charge pairs survive", func() {
				So(err, ShouldBeNil)
				So(len(cands), ShouldEqual, 2)
				for _, cand := range cands {
					So(len(cand.Indices), ShouldEqual, 2)
					So(cand.Charge, ShouldEqual, 0)
				}
			})
		})
	})

	Convey("Given invalid options", t, func() {
		c := combiner.NewSubsetCombiner(combiner.WithSubsetSize(1))

		Convey("Then the default subset size is kept", func() {
			So(c.SubsetSize(), ShouldEqual, 4)
		})
	})
}

func TestSubsetCombiner_Cancellation(t *testing.T) {
	Convey("Given a cancelled context and a large event", t, func() {
		c := combiner.NewSubsetCombiner()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Enough particles that the enumeration crosses a cancellation check.
		e := neutralEvent("evt-big", 40)

		Convey("When combining", func() {
			_, err := c.Combine(ctx, e)

			Convey("Then the enumeration stops with a wrapped context error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "cancelled")
			})
		})
	})
}

func TestCombineAll(t *testing.T) {
	Convey("Given a batch of events", t, func() {
		c := combiner.NewSubsetCombiner()
		events := []model.Event{
			neutralEvent("evt-0", 4),
			neutralEvent("evt-1", 2), // below threshold, contributes nothing
			neutralEvent("evt-2", 6),
		}

		Convey("When combining the batch", func() {
			all, err := c.CombineAll(context.Background(), events)
			So(err, ShouldBeNil)

			Convey("Then the result equals the concatenation of per-event results", func() {
				var want []model.Candidate
				for _, e := range events {
					cands, cerr := c.Combine(context.Background(), e)
					So(cerr, ShouldBeNil)
					want = append(want, cands...)
				}
				So(all, ShouldResemble, want)
			})
		})
	})
}

func TestChoose(t *testing.T) {
	Convey("Given binomial coefficient inputs", t, func() {
		Convey("Then known values are reproduced", func() {
			So(combiner.Choose(4, 4), ShouldEqual, 1)
			So(combiner.Choose(5, 4), ShouldEqual, 5)
			So(combiner.Choose(10, 4), ShouldEqual, 210)
			So(combiner.Choose(3, 4), ShouldEqual, 0)
			So(combiner.Choose(0, 0), ShouldEqual, 1)
			So(combiner.Choose(6, 2), ShouldEqual, 15)
		})
	})
}
