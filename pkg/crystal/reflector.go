package crystal

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// integerTol is the largest deviation from an integer accepted when reducing
// real-valued index triplets to integer directions. Larger residuals indicate
// the triplet has no exact integer representation and are rejected instead of
// silently rounded.
const integerTol = 1e-6

// Reflector is one candidate diffracting plane: a reciprocal lattice vector
// with optional externally computed scattering quantities.
type Reflector struct {
	// HKL are the Miller indices of the plane.
	HKL [3]float64

	// StructureFactor is the kinematical structure factor F_hkl. NaN until
	// computed by an external routine.
	StructureFactor complex128

	// Theta is the Bragg angle in radians at some accelerating voltage. NaN
	// until computed by an external routine.
	Theta float64
}

// ReflectorSet is an ordered collection of reflectors sharing one phase.
type ReflectorSet struct {
	// Phase is the crystal phase all reflectors belong to.
	Phase *Phase

	// Reflectors holds the vectors in a stable order.
	Reflectors []Reflector
}

// NewReflectorSet builds a set from plain hkl triplets with structure factors
// and Bragg angles unset.
func NewReflectorSet(phase *Phase, hkl ...[3]float64) (*ReflectorSet, error) {
	if phase == nil || phase.Lattice == nil {
		return nil, fmt.Errorf("reflector set requires a phase with a lattice")
	}
	if len(hkl) == 0 {
		return nil, fmt.Errorf("reflector set requires at least one hkl triplet")
	}
	nan := math.NaN()
	refs := make([]Reflector, len(hkl))
	for i, h := range hkl {
		refs[i] = Reflector{
			HKL:             h,
			StructureFactor: complex(nan, nan),
			Theta:           nan,
		}
	}
	return &ReflectorSet{Phase: phase, Reflectors: refs}, nil
}

// Len returns the number of reflectors.
func (s *ReflectorSet) Len() int {
	return len(s.Reflectors)
}

// Clone returns a deep copy of the set, including the phase.
func (s *ReflectorSet) Clone() *ReflectorSet {
	refs := make([]Reflector, len(s.Reflectors))
	copy(refs, s.Reflectors)
	return &ReflectorSet{Phase: s.Phase.Clone(), Reflectors: refs}
}

// Select returns a deep copy holding only the reflectors where keep is true.
func (s *ReflectorSet) Select(keep []bool) (*ReflectorSet, error) {
	if len(keep) != len(s.Reflectors) {
		return nil, fmt.Errorf("selection mask has length %d, set has %d reflectors",
			len(keep), len(s.Reflectors))
	}
	var refs []Reflector
	for i, k := range keep {
		if k {
			refs = append(refs, s.Reflectors[i])
		}
	}
	return &ReflectorSet{Phase: s.Phase.Clone(), Reflectors: refs}, nil
}

// HKLMatrix returns the hkl triplets stacked as an n×3 matrix of row vectors.
func (s *ReflectorSet) HKLMatrix() *mat.Dense {
	m := mat.NewDense(len(s.Reflectors), 3, nil)
	for i, r := range s.Reflectors {
		m.SetRow(i, []float64{r.HKL[0], r.HKL[1], r.HKL[2]})
	}
	return m
}

// HasTheta reports whether Bragg angles have been set on the set. Bragg
// angles are computed for all reflectors at once externally, so checking the
// first entry suffices.
func (s *ReflectorSet) HasTheta() bool {
	return len(s.Reflectors) > 0 && !math.IsNaN(s.Reflectors[0].Theta)
}

// HasStructureFactor reports whether structure factors have been set.
func (s *ReflectorSet) HasStructureFactor() bool {
	return len(s.Reflectors) > 0 && !cmplx.IsNaN(s.Reflectors[0].StructureFactor)
}

// SetThetas assigns Bragg angles (radians), one per reflector.
func (s *ReflectorSet) SetThetas(theta []float64) error {
	if len(theta) != len(s.Reflectors) {
		return fmt.Errorf("got %d Bragg angles for %d reflectors", len(theta), len(s.Reflectors))
	}
	for i := range s.Reflectors {
		s.Reflectors[i].Theta = theta[i]
	}
	return nil
}

// SetStructureFactors assigns structure factors, one per reflector.
func (s *ReflectorSet) SetStructureFactors(f []complex128) error {
	if len(f) != len(s.Reflectors) {
		return fmt.Errorf("got %d structure factors for %d reflectors", len(f), len(s.Reflectors))
	}
	for i := range s.Reflectors {
		s.Reflectors[i].StructureFactor = f[i]
	}
	return nil
}

// UnitCartesian returns the unit reciprocal vectors in the cartesian crystal
// frame as an n×3 matrix of row vectors.
func (s *ReflectorSet) UnitCartesian() *mat.Dense {
	var cart mat.Dense
	cart.Mul(s.HKLMatrix(), s.Phase.Lattice.RecBase())
	n, _ := cart.Dims()
	for i := 0; i < n; i++ {
		row := cart.RawRowView(i)
		norm := math.Sqrt(row[0]*row[0] + row[1]*row[1] + row[2]*row[2])
		if norm > 0 {
			row[0] /= norm
			row[1] /= norm
			row[2] /= norm
		}
	}
	return &cart
}

// ZoneAxis is a reduced-integer direct lattice direction [uvw].
type ZoneAxis struct {
	// UVW are the direction indices reduced to smallest integers.
	UVW [3]int
}

// ZoneAxes derives the zone axes of the set from all ordered pairwise cross
// products of its reflectors, in row-major pair order. The null vector is
// dropped and duplicates are removed while preserving first-seen order.
//
// The cross product of two reciprocal vectors g1 × g2 lies along the direct
// lattice direction given by the integer cross product of the two hkl
// triplets, for any lattice. Computing it in integer arithmetic and reducing
// by the greatest common divisor therefore produces exact reduced indices,
// with no rounding step. Reflector indices that are not integers within a
// small tolerance are rejected.
func (s *ReflectorSet) ZoneAxes() ([]ZoneAxis, error) {
	ihkl := make([][3]int, len(s.Reflectors))
	for i, r := range s.Reflectors {
		for j := 0; j < 3; j++ {
			rounded := math.Round(r.HKL[j])
			if math.Abs(r.HKL[j]-rounded) > integerTol {
				return nil, fmt.Errorf("reflector %v has non-integer indices, cannot derive exact zone axes", r.HKL)
			}
			ihkl[i][j] = int(rounded)
		}
	}

	seen := make(map[[3]int]bool)
	var axes []ZoneAxis
	for _, a := range ihkl {
		for _, b := range ihkl {
			c := [3]int{
				a[1]*b[2] - a[2]*b[1],
				a[2]*b[0] - a[0]*b[2],
				a[0]*b[1] - a[1]*b[0],
			}
			if c == [3]int{} {
				continue
			}
			c = reduceIndices(c)
			if !seen[c] {
				seen[c] = true
				axes = append(axes, ZoneAxis{UVW: c})
			}
		}
	}
	return axes, nil
}

// reduceIndices divides a non-zero triplet by the greatest common divisor of
// its components.
func reduceIndices(v [3]int) [3]int {
	g := gcd(gcd(abs(v[0]), abs(v[1])), abs(v[2]))
	if g > 1 {
		v[0] /= g
		v[1] /= g
		v[2] /= g
	}
	return v
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// CubicFamily expands {hkl} to all symmetrically equivalent planes of the
// cubic holosymmetric point group m-3m: every permutation of the indices with
// every sign combination. The result is sorted lexicographically for a stable
// order. This is a convenience for cubic phases, not a general symmetry
// engine; sets for other point groups should be expanded externally.
func CubicFamily(h, k, l int) [][3]float64 {
	seen := make(map[[3]int]bool)
	base := [3]int{abs(h), abs(k), abs(l)}
	perms := [][3]int{
		{base[0], base[1], base[2]},
		{base[0], base[2], base[1]},
		{base[1], base[0], base[2]},
		{base[1], base[2], base[0]},
		{base[2], base[0], base[1]},
		{base[2], base[1], base[0]},
	}
	for _, p := range perms {
		for _, sx := range []int{1, -1} {
			for _, sy := range []int{1, -1} {
				for _, sz := range []int{1, -1} {
					v := [3]int{p[0] * sx, p[1] * sy, p[2] * sz}
					if v == [3]int{} {
						continue
					}
					seen[v] = true
				}
			}
		}
	}

	family := make([][3]int, 0, len(seen))
	for v := range seen {
		family = append(family, v)
	}
	sort.Slice(family, func(i, j int) bool {
		a, b := family[i], family[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})

	out := make([][3]float64, len(family))
	for i, v := range family {
		out[i] = [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
	}
	return out
}
