// Package crystal provides the crystallographic primitives consumed by the
// Kikuchi pattern simulation core: unit-cell lattices, phases, and ordered
// sets of reciprocal lattice vectors (reflectors). The package implements
// only the vector algebra the simulation needs; structure factors and Bragg
// angles are treated as externally computed inputs.
package crystal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Lattice describes a unit cell by its lengths in ångström and angles in
// degrees, together with the derived cartesian basis matrices.
type Lattice struct {
	// A, B, C are the unit cell lengths in ångström.
	A, B, C float64

	// Alpha, Beta, Gamma are the unit cell angles in degrees.
	Alpha, Beta, Gamma float64

	// base holds the direct basis vectors as rows: base[0] is the a-axis
	// expressed in the cartesian crystal frame, with a along x and b in the
	// x-y plane.
	base *mat.Dense

	// recbase holds the reciprocal basis vectors as rows, satisfying
	// base · recbaseᵀ = I.
	recbase *mat.Dense
}

// NewLattice builds a lattice from cell lengths (ångström) and angles
// (degrees) and precomputes the direct and reciprocal basis matrices.
func NewLattice(a, b, c, alpha, beta, gamma float64) (*Lattice, error) {
	if a <= 0 || b <= 0 || c <= 0 {
		return nil, fmt.Errorf("unit cell lengths must be positive, got (%g, %g, %g)", a, b, c)
	}
	for _, ang := range []float64{alpha, beta, gamma} {
		if ang <= 0 || ang >= 180 {
			return nil, fmt.Errorf("unit cell angles must be in (0, 180) degrees, got (%g, %g, %g)",
				alpha, beta, gamma)
		}
	}

	ca := math.Cos(alpha * math.Pi / 180)
	cb := math.Cos(beta * math.Pi / 180)
	cg := math.Cos(gamma * math.Pi / 180)
	sg := math.Sin(gamma * math.Pi / 180)

	// Volume factor of the c-axis z component
	v := math.Sqrt(1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg)
	if math.IsNaN(v) || v < 1e-12 {
		return nil, fmt.Errorf("degenerate unit cell (%g, %g, %g, %g, %g, %g)", a, b, c, alpha, beta, gamma)
	}

	base := mat.NewDense(3, 3, []float64{
		a, 0, 0,
		b * cg, b * sg, 0,
		c * cb, c * (ca - cb*cg) / sg, c * v / sg,
	})

	var inv mat.Dense
	if err := inv.Inverse(base); err != nil {
		return nil, fmt.Errorf("inverting direct basis: %w", err)
	}
	recbase := mat.DenseCopyOf(inv.T())

	return &Lattice{
		A: a, B: b, C: c,
		Alpha: alpha, Beta: beta, Gamma: gamma,
		base:    base,
		recbase: recbase,
	}, nil
}

// NewCubicLattice is a convenience constructor for cubic cells.
func NewCubicLattice(a float64) (*Lattice, error) {
	return NewLattice(a, a, a, 90, 90, 90)
}

// Base returns a copy of the direct basis matrix (rows are basis vectors).
func (l *Lattice) Base() *mat.Dense {
	return mat.DenseCopyOf(l.base)
}

// RecBase returns a copy of the reciprocal basis matrix (rows are reciprocal
// basis vectors). Row vectors of hkl indices multiplied by this matrix give
// cartesian reciprocal vectors.
func (l *Lattice) RecBase() *mat.Dense {
	return mat.DenseCopyOf(l.recbase)
}

// Clone returns an independent copy of the lattice.
func (l *Lattice) Clone() *Lattice {
	return &Lattice{
		A: l.A, B: l.B, C: l.C,
		Alpha: l.Alpha, Beta: l.Beta, Gamma: l.Gamma,
		base:    mat.DenseCopyOf(l.base),
		recbase: mat.DenseCopyOf(l.recbase),
	}
}

// Phase ties a lattice to a named crystal phase with a point group label.
// The simulation core only reads phases.
type Phase struct {
	// Name identifies the phase, e.g. "al".
	Name string

	// PointGroup is the Hermann-Mauguin point group symbol, e.g. "m-3m".
	PointGroup string

	// Lattice is the unit cell of the phase.
	Lattice *Lattice
}

// Clone returns a deep copy of the phase.
func (p *Phase) Clone() *Phase {
	return &Phase{
		Name:       p.Name,
		PointGroup: p.PointGroup,
		Lattice:    p.Lattice.Clone(),
	}
}

// String formats the phase like "al (m-3m)".
func (p *Phase) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.PointGroup)
}
