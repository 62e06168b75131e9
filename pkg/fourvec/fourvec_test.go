package fourvec_test

import (
	"math"
	"testing"

	"github.com/okian/kinema/pkg/fourvec"
	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-9

func TestFromPtEtaPhiM(t *testing.T) {
	Convey("Given collider coordinates", t, func() {
		Convey("When the vector points along +x with no longitudinal momentum", func() {
			v := fourvec.FromPtEtaPhiM(10, 0, 0, 0)

			Convey("Then the Cartesian components follow the standard formulas", func() {
				So(v.Px, ShouldAlmostEqual, 10, tolerance)
				So(v.Py, ShouldAlmostEqual, 0, tolerance)
				So(v.Pz, ShouldAlmostEqual, 0, tolerance)
				So(v.E, ShouldAlmostEqual, 10, tolerance)
			})
		})

		Convey("When the particle is massive", func() {
			v := fourvec.FromPtEtaPhiM(3, 0, math.Pi/2, 4)

			Convey("Then the energy satisfies E^2 = m^2 + |p|^2", func() {
				So(v.E, ShouldAlmostEqual, 5, tolerance)
				So(v.Px, ShouldAlmostEqual, 0, tolerance)
				So(v.Py, ShouldAlmostEqual, 3, tolerance)
			})

			Convey("And Mass recovers the rest mass", func() {
				So(v.Mass(), ShouldAlmostEqual, 4, tolerance)
			})
		})

		Convey("When eta is nonzero", func() {
			v := fourvec.FromPtEtaPhiM(5, 1.2, 0, 0)

			Convey("Then pz = pt*sinh(eta)", func() {
				So(v.Pz, ShouldAlmostEqual, 5*math.Sinh(1.2), tolerance)
			})
		})
	})
}

func TestRoundTrip(t *testing.T) {
	Convey("Given a set of representative coordinates", t, func() {
		cases := []struct {
			pt, eta, phi, m float64
		}{
			{1, 0, 0, 0},
			{42.5, -2.1, 1.3, 0.105},
			{0.3, 3.9, -2.9, 1.777},
			{250, 0.001, math.Pi - 1e-6, 91.19},
		}

		Convey("When converting to Cartesian and back", func() {
			for _, c := range cases {
				v := fourvec.FromPtEtaPhiM(c.pt, c.eta, c.phi, c.m)
				So(v.Pt(), ShouldAlmostEqual, c.pt, 1e-9*c.pt+1e-12)
				So(v.Eta(), ShouldAlmostEqual, c.eta, 1e-9)
				So(v.Phi(), ShouldAlmostEqual, c.phi, 1e-9)
			}
		})
	})
}

func TestMass(t *testing.T) {
	Convey("Given summed four-vectors", t, func() {
		Convey("When two massless back-to-back particles are combined", func() {
			a := fourvec.FromPtEtaPhiM(45, 0, 0, 0)
			b := fourvec.FromPtEtaPhiM(45, 0, math.Pi, 0)

			Convey("Then the pair mass is twice the energy", func() {
				So(a.Add(b).Mass(), ShouldAlmostEqual, 90, 1e-9)
			})
		})

		Convey("When the mass-squared is negative", func() {
			// Spacelike by construction: more momentum than energy.
			v := fourvec.Vec{Px: 5, E: 3}

			Convey("Then the sign is preserved instead of producing NaN", func() {
				So(v.Mass(), ShouldAlmostEqual, -4, 1e-9)
				So(math.IsNaN(v.Mass()), ShouldBeFalse)
			})
		})

		Convey("When the vector is null", func() {
			v := fourvec.FromPtEtaPhiM(7, 0.5, 0.25, 0)

			Convey("Then the mass is zero within tolerance", func() {
				So(v.Mass(), ShouldAlmostEqual, 0, 1e-6)
			})
		})
	})
}

func TestEtaEdgeCases(t *testing.T) {
	Convey("Given vectors with zero transverse momentum", t, func() {
		Convey("When pz is positive eta is +Inf", func() {
			So(math.IsInf(fourvec.Vec{Pz: 1}.Eta(), 1), ShouldBeTrue)
		})
		Convey("When pz is negative eta is -Inf", func() {
			So(math.IsInf(fourvec.Vec{Pz: -1}.Eta(), -1), ShouldBeTrue)
		})
		Convey("When the vector is zero eta is zero", func() {
			So(fourvec.Vec{}.Eta(), ShouldEqual, 0)
		})
	})
}
