package repository_test

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/okian/kinema/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func newIndex(ctx context.Context) *repository.MassIndex {
	return repository.NewMassIndex(ctx,
		repository.WithSnapshotInterval(10*time.Millisecond),
		repository.WithHistogramGrid(20, 0, 200),
	)
}

func entry(id, eventID string, mass float64) repository.Entry {
	return repository.Entry{ID: id, EventID: eventID, Mass: mass, Indices: []int{0, 1, 2, 3}}
}

func TestInsert(t *testing.T) {
	Convey("Given an empty mass index", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		Convey("When inserting a candidate", func() {
			ok, err := s.Insert(ctx, entry("evt-1/0/1/2/3", "evt-1", 91.2))

			Convey("Then the insert succeeds", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(s.Count(ctx), ShouldEqual, 1)
				So(s.EventCount(ctx), ShouldEqual, 1)
			})

			Convey("And inserting the same id again is a no-op", func() {
				ok, err := s.Insert(ctx, entry("evt-1/0/1/2/3", "evt-1", 91.2))
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(s.Count(ctx), ShouldEqual, 1)
			})
		})
	})
}

func TestRange(t *testing.T) {
	Convey("Given an index with a spread of masses", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		masses := []float64{12.5, 45.0, 60.1, 89.9, 91.2, 92.4, 125.0, 250.3}
		for i, m := range masses {
			_, err := s.Insert(ctx, entry(fmt.Sprintf("evt-%d/0/1/2/3", i), fmt.Sprintf("evt-%d", i), m))
			So(err, ShouldBeNil)
		}

		Convey("When querying a mass window", func() {
			out, err := s.Range(ctx, 85, 95, 100)

			Convey("Then only in-window candidates are returned, lightest first", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 3)
				So(out[0].Mass, ShouldAlmostEqual, 89.9, 1e-9)
				So(out[1].Mass, ShouldAlmostEqual, 91.2, 1e-9)
				So(out[2].Mass, ShouldAlmostEqual, 92.4, 1e-9)
			})
		})

		Convey("When the limit truncates the result", func() {
			out, err := s.Range(ctx, 0, 300, 4)

			Convey("Then the lightest candidates win", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 4)
				So(out[0].Mass, ShouldAlmostEqual, 12.5, 1e-9)
				So(out[3].Mass, ShouldAlmostEqual, 89.9, 1e-9)
			})
		})

		Convey("When the window is empty", func() {
			out, err := s.Range(ctx, 300, 400, 10)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("When the parameters are invalid", func() {
			_, err := s.Range(ctx, 10, 5, 10)
			So(err, ShouldEqual, repository.ErrInvalidRange)

			_, err = s.Range(ctx, 0, 10, 0)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
		})
	})
}

func TestRangeOrderingIsDeterministic(t *testing.T) {
	Convey("Given candidates with identical masses", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		ids := []string{"evt-b/0/1/2/3", "evt-a/0/1/2/3", "evt-c/0/1/2/3"}
		for _, id := range ids {
			_, err := s.Insert(ctx, repository.Entry{ID: id, EventID: id[:5], Mass: 50.0})
			So(err, ShouldBeNil)
		}

		Convey("When querying the window", func() {
			out, err := s.Range(ctx, 49, 51, 10)

			Convey("Then ties break by candidate id ascending", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 3)
				So(out[0].ID, ShouldEqual, "evt-a/0/1/2/3")
				So(out[1].ID, ShouldEqual, "evt-b/0/1/2/3")
				So(out[2].ID, ShouldEqual, "evt-c/0/1/2/3")
			})
		})
	})
}

func TestHistogram(t *testing.T) {
	Convey("Given an index with known masses", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		// Grid: 10 bins over [0, 100): bin width 10.
		masses := []float64{-5.0, 5.0, 15.0, 15.5, 99.9, 100.0, 250.0}
		for i, m := range masses {
			_, err := s.Insert(ctx, entry(fmt.Sprintf("evt-%d/0/1/2/3", i), fmt.Sprintf("evt-%d", i), m))
			So(err, ShouldBeNil)
		}

		Convey("When binning on a custom grid", func() {
			h, err := s.Histogram(ctx, 10, 0, 100)

			Convey("Then counts, underflow, and overflow are correct", func() {
				So(err, ShouldBeNil)
				So(h.Bins, ShouldEqual, 10)
				So(h.Counts[0], ShouldEqual, 1) // 5.0
				So(h.Counts[1], ShouldEqual, 2) // 15.0, 15.5
				So(h.Counts[9], ShouldEqual, 1) // 99.9
				So(h.Underflow, ShouldEqual, 1) // -5.0
				So(h.Overflow, ShouldEqual, 2)  // 100.0, 250.0
				So(h.Total, ShouldEqual, 7)
			})
		})

		Convey("When the parameters are invalid", func() {
			_, err := s.Histogram(ctx, 0, 0, 100)
			So(err, ShouldEqual, repository.ErrInvalidHistogram)

			_, err = s.Histogram(ctx, 10, 100, 100)
			So(err, ShouldEqual, repository.ErrInvalidHistogram)
		})

		Convey("When the default grid snapshot has been published", func() {
			time.Sleep(50 * time.Millisecond)
			h, err := s.Histogram(ctx, 20, 0, 200)

			Convey("Then the cached snapshot agrees with a direct rebin", func() {
				So(err, ShouldBeNil)
				So(h.Total, ShouldEqual, 7)
			})
		})
	})
}

func TestHistogramBinEdgeRounding(t *testing.T) {
	Convey("Given a grid whose top edge sits just above an indexed mass", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		// (m-lo)/width rounds to exactly bins here even though m < hi.
		_, err := s.Insert(ctx, entry("evt-1/0/1/2/3", "evt-1", 213.544320302))
		So(err, ShouldBeNil)

		Convey("When binning with the adversarial grid", func() {
			var h repository.Histogram
			So(func() {
				h, err = s.Histogram(ctx, 80, 37.862828664839284, 213.54432030200002)
			}, ShouldNotPanic)

			Convey("Then the mass lands in the last bin", func() {
				So(err, ShouldBeNil)
				So(h.Counts[79], ShouldEqual, 1)
				So(h.Overflow, ShouldEqual, 0)
				So(h.Total, ShouldEqual, 1)
			})
		})
	})
}

func TestRangeBoundQuantization(t *testing.T) {
	Convey("Given an indexed mass of exactly 100", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		_, err := s.Insert(ctx, entry("evt-1/0/1/2/3", "evt-1", 100.0))
		So(err, ShouldBeNil)

		Convey("When the lower bound sits a fraction of a quantum above it", func() {
			out, err := s.Range(ctx, 100.0000000004, 200, 10)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("When the upper bound sits a fraction of a quantum below it", func() {
			out, err := s.Range(ctx, 50, 99.9999999996, 10)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("When the window is the exact point", func() {
			out, err := s.Range(ctx, 100, 100, 10)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 1)
		})
	})
}

func TestByEvent(t *testing.T) {
	Convey("Given candidates from two events", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		for i := 0; i < 3; i++ {
			_, err := s.Insert(ctx, entry(fmt.Sprintf("evt-1/%d", i), "evt-1", float64(10+i)))
			So(err, ShouldBeNil)
		}
		_, err := s.Insert(ctx, entry("evt-2/0", "evt-2", 42))
		So(err, ShouldBeNil)

		Convey("When fetching by event", func() {
			out, err := s.ByEvent(ctx, "evt-1")

			Convey("Then only that event's candidates are returned", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 3)
				for _, e := range out {
					So(e.EventID, ShouldEqual, "evt-1")
				}
			})
		})

		Convey("When the event is unknown", func() {
			_, err := s.ByEvent(ctx, "evt-nope")
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}

func TestConcurrentInserts(t *testing.T) {
	Convey("Given concurrent writers and readers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := newIndex(ctx)
		defer func() { So(s.Close(), ShouldBeNil) }()

		Convey("When 8 goroutines insert 200 candidates each", func() {
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					rng := rand.New(rand.NewSource(int64(g)))
					for i := 0; i < 200; i++ {
						id := fmt.Sprintf("evt-%d/%d", g, i)
						_, _ = s.Insert(ctx, repository.Entry{
							ID:      id,
							EventID: fmt.Sprintf("evt-%d", g),
							Mass:    rng.Float64() * 100,
						})
						if i%50 == 0 {
							_, _ = s.Range(ctx, 0, 100, 10)
						}
					}
				}(g)
			}
			wg.Wait()

			Convey("Then every candidate is indexed and ordered", func() {
				So(s.Count(ctx), ShouldEqual, 1600)
				So(s.EventCount(ctx), ShouldEqual, 8)

				out, err := s.Range(ctx, 0, 100, 1600)
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 1600)
				So(sort.SliceIsSorted(out, func(i, j int) bool {
					if out[i].Mass != out[j].Mass {
						return out[i].Mass < out[j].Mass
					}
					return out[i].ID < out[j].ID
				}), ShouldBeTrue)
			})
		})
	})
}
