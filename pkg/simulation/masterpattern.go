package simulation

import (
	"fmt"
	"math/cmplx"

	"kikusim/pkg/crystal"
)

// MasterPattern is a kinematical master pattern in the stereographic
// projection: per-pixel scattered intensity over one or both hemispheres of
// the diffraction sphere, independent of any detector geometry. Immutable
// after construction.
type MasterPattern struct {
	phase      *crystal.Phase
	hemisphere Hemisphere
	size       int
	data       []float64
}

// Phase returns a copy of the owning phase.
func (m *MasterPattern) Phase() *crystal.Phase {
	return m.phase.Clone()
}

// Hemisphere returns which hemisphere(s) the pattern covers.
func (m *MasterPattern) Hemisphere() Hemisphere {
	return m.hemisphere
}

// Projection names the spherical projection of the pattern.
func (m *MasterPattern) Projection() string {
	return "stereographic"
}

// Size returns the side length of the square pattern in pixels.
func (m *MasterPattern) Size() int {
	return m.size
}

// NumHemispheres returns how many hemisphere images are stacked.
func (m *MasterPattern) NumHemispheres() int {
	if m.hemisphere == HemisphereBoth {
		return 2
	}
	return 1
}

// At returns the intensity at (row, col) of the given hemisphere image.
// Pixel (0, 0) is the corner at planar grid coordinate (-1, -1); the axis
// offset of the pattern center is size/2 pixels in both directions.
func (m *MasterPattern) At(hemisphere, row, col int) float64 {
	return m.data[(hemisphere*m.size+row)*m.size+col]
}

// Hemi returns a copy of one hemisphere image, row-major.
func (m *MasterPattern) Hemi(hemisphere int) []float64 {
	n := m.size * m.size
	out := make([]float64, n)
	copy(out, m.data[hemisphere*n:(hemisphere+1)*n])
	return out
}

// Data returns a copy of the full intensity stack, hemispheres leading.
func (m *MasterPattern) Data() []float64 {
	out := make([]float64, len(m.data))
	copy(out, m.data)
	return out
}

// String gives a short description of the pattern.
func (m *MasterPattern) String() string {
	return fmt.Sprintf("MasterPattern (%s, %dx%d): %s, stereographic",
		m.hemisphere, m.size, m.size, m.phase)
}

// CalculateMasterPattern computes a kinematical master pattern from the
// simulator's reflectors. Requires Bragg angles on the reflectors, and
// structure factors unless scaling is ScalingNone. The full side length is
// 2·halfSize+1 pixels; with HemisphereBoth the two hemisphere images stack
// along a leading axis.
func (s *Simulator) CalculateMasterPattern(halfSize int, hemisphere Hemisphere, scaling Scaling) (*MasterPattern, error) {
	if halfSize < 1 {
		return nil, fmt.Errorf("master pattern half size must be at least 1, got %d", halfSize)
	}
	if !s.reflectors.HasTheta() {
		return nil, fmt.Errorf("reflectors have no Bragg angles, compute them externally before simulating")
	}

	intensity, err := bandIntensities(s.reflectors, scaling)
	if err != nil {
		return nil, err
	}

	unit := s.reflectors.UnitCartesian()
	nRef := s.reflectors.Len()
	refDirs := make([]float64, 3*nRef)
	theta := make([]float64, nRef)
	for i := 0; i < nRef; i++ {
		refDirs[3*i] = unit.At(i, 0)
		refDirs[3*i+1] = unit.At(i, 1)
		refDirs[3*i+2] = unit.At(i, 2)
		theta[i] = s.reflectors.Reflectors[i].Theta
	}

	size := 2*halfSize + 1
	poles := hemisphere.Poles()
	data := make([]float64, 0, len(poles)*size*size)
	for hi, pole := range poles {
		if s.progress != nil {
			s.progress(hi, len(poles), fmt.Sprintf("computing hemisphere %d of %d", hi+1, len(poles)))
		}
		grid := inverseStereographicGrid(halfSize, pole)
		data = append(data, accumulatePattern(intensity, refDirs, theta, grid, s.workers, s.progress)...)
	}

	return &MasterPattern{
		phase:      s.reflectors.Phase.Clone(),
		hemisphere: hemisphere,
		size:       size,
		data:       data,
	}, nil
}

// bandIntensities resolves per-reflector band intensities for a scaling
// mode: |F| for linear, |F|² for square, and a uniform 1 with no structure
// factor requirement for none.
func bandIntensities(ref *crystal.ReflectorSet, scaling Scaling) ([]float64, error) {
	n := ref.Len()
	intensity := make([]float64, n)
	switch scaling {
	case ScalingNone:
		for i := range intensity {
			intensity[i] = 1
		}
	case ScalingLinear:
		if !ref.HasStructureFactor() {
			return nil, fmt.Errorf("reflectors have no structure factors, required for %s scaling", scaling)
		}
		for i := range intensity {
			intensity[i] = cmplx.Abs(ref.Reflectors[i].StructureFactor)
		}
	case ScalingSquare:
		if !ref.HasStructureFactor() {
			return nil, fmt.Errorf("reflectors have no structure factors, required for %s scaling", scaling)
		}
		for i := range intensity {
			f := cmplx.Abs(ref.Reflectors[i].StructureFactor)
			intensity[i] = f * f
		}
	default:
		return nil, fmt.Errorf("unknown scaling %v, options are %v, %v or %v",
			scaling, ScalingLinear, ScalingSquare, ScalingNone)
	}
	return intensity, nil
}
