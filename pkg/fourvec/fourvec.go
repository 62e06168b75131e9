// Package fourvec provides Lorentz four-vector arithmetic for particle kinematics.
package fourvec

import "math"

// Vec is a Lorentz four-vector in Cartesian components.
type Vec struct {
	Px float64
	Py float64
	Pz float64
	E  float64
}

// FromPtEtaPhiM builds a four-vector from collider coordinates:
// transverse momentum, pseudorapidity, azimuthal angle, and rest mass.
func FromPtEtaPhiM(pt, eta, phi, m float64) Vec {
	px := pt * math.Cos(phi)
	py := pt * math.Sin(phi)
	pz := pt * math.Sinh(eta)
	return Vec{
		Px: px,
		Py: py,
		Pz: pz,
		E:  math.Sqrt(m*m + px*px + py*py + pz*pz),
	}
}

// Add returns the component-wise sum of v and w.
func (v Vec) Add(w Vec) Vec {
	return Vec{
		Px: v.Px + w.Px,
		Py: v.Py + w.Py,
		Pz: v.Pz + w.Pz,
		E:  v.E + w.E,
	}
}

// P2 returns the squared three-momentum magnitude.
func (v Vec) P2() float64 {
	return v.Px*v.Px + v.Py*v.Py + v.Pz*v.Pz
}

// Mass returns the invariant mass sqrt(E^2 - |p|^2).
// When the mass-squared is negative the sign is preserved as -sqrt(-m^2),
// so unphysical combinations remain finite and histogrammable.
func (v Vec) Mass() float64 {
	m2 := v.E*v.E - v.P2()
	if m2 < 0 {
		return -math.Sqrt(-m2)
	}
	return math.Sqrt(m2)
}

// Pt returns the transverse momentum sqrt(px^2 + py^2).
func (v Vec) Pt() float64 {
	return math.Hypot(v.Px, v.Py)
}

// Eta returns the pseudorapidity asinh(pz/pt).
// A vector with zero transverse momentum has undefined eta; +/-Inf is
// returned following the sign of pz (0 when pz is also zero).
func (v Vec) Eta() float64 {
	pt := v.Pt()
	if pt == 0 {
		switch {
		case v.Pz > 0:
			return math.Inf(1)
		case v.Pz < 0:
			return math.Inf(-1)
		default:
			return 0
		}
	}
	return math.Asinh(v.Pz / pt)
}

// Phi returns the azimuthal angle atan2(py, px) in (-pi, pi].
func (v Vec) Phi() float64 {
	return math.Atan2(v.Py, v.Px)
}
