// Package rotation provides the crystal orientation algebra consumed by the
// simulation core: unit quaternions with Bunge Euler angle and axis-angle
// constructors, composition, matrix conversion, and navigation-shaped
// batches.
package rotation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"kikusim/internal/nav"
)

// Rotation is a unit quaternion describing a 3D rotation.
type Rotation struct {
	q quat.Number
}

// Identity returns the identity rotation.
func Identity() Rotation {
	return Rotation{q: quat.Number{Real: 1}}
}

// FromAxisAngle returns the active rotation by angle (radians) about axis.
// The axis does not need to be normalized but must be non-zero.
func FromAxisAngle(axis [3]float64, angle float64) (Rotation, error) {
	norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if norm < 1e-12 {
		return Rotation{}, fmt.Errorf("rotation axis must be non-zero, got %v", axis)
	}
	s := math.Sin(angle/2) / norm
	return Rotation{q: quat.Number{
		Real: math.Cos(angle / 2),
		Imag: s * axis[0],
		Jmag: s * axis[1],
		Kmag: s * axis[2],
	}}, nil
}

// FromEuler returns the rotation for Bunge ZXZ Euler angles phi1, Phi, phi2
// in radians. The convention matches the usual texture definition: the
// rotation matrix is g = Rz(-phi2)·Rx(-Phi)·Rz(-phi1), so that g maps sample
// frame components to crystal frame components.
func FromEuler(phi1, phi, phi2 float64) Rotation {
	qz2 := axisQuat(0, 0, 1, -phi2)
	qx := axisQuat(1, 0, 0, -phi)
	qz1 := axisQuat(0, 0, 1, -phi1)
	return Rotation{q: quat.Mul(quat.Mul(qz2, qx), qz1)}
}

// FromEulerDeg is FromEuler with angles in degrees.
func FromEulerDeg(phi1, phi, phi2 float64) Rotation {
	const d = math.Pi / 180
	return FromEuler(phi1*d, phi*d, phi2*d)
}

func axisQuat(x, y, z, angle float64) quat.Number {
	s := math.Sin(angle / 2)
	return quat.Number{Real: math.Cos(angle / 2), Imag: s * x, Jmag: s * y, Kmag: s * z}
}

// Mul composes two rotations. The matrix of r.Mul(o) equals the matrix
// product r.Matrix() · o.Matrix().
func (r Rotation) Mul(o Rotation) Rotation {
	return Rotation{q: quat.Mul(r.q, o.q)}
}

// Inverse returns the reverse rotation.
func (r Rotation) Inverse() Rotation {
	return Rotation{q: quat.Conj(r.q)}
}

// Matrix returns the 3×3 rotation matrix of the quaternion.
func (r Rotation) Matrix() *mat.Dense {
	w, x, y, z := r.q.Real, r.q.Imag, r.q.Jmag, r.q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}

// Quat exposes the underlying quaternion.
func (r Rotation) Quat() quat.Number {
	return r.q
}

// Batch is a navigation-shaped collection of crystal orientations, each
// mapping the default sample frame to the crystal frame.
type Batch struct {
	rotations []Rotation
	shape     nav.Shape
}

// NewBatch builds a batch with the given navigation shape. The number of
// rotations must match the shape's size; rotations are laid out row-major.
func NewBatch(shape nav.Shape, rotations ...Rotation) (*Batch, error) {
	if len(shape) == 0 || len(shape) > nav.MaxDimensions {
		return nil, fmt.Errorf("rotation batch needs a navigation shape of rank 1 or 2, got %v", shape)
	}
	if len(rotations) != shape.Size() {
		return nil, fmt.Errorf("got %d rotations for navigation shape %v of size %d",
			len(rotations), shape, shape.Size())
	}
	rs := make([]Rotation, len(rotations))
	copy(rs, rotations)
	return &Batch{rotations: rs, shape: shape.Clone()}, nil
}

// Single wraps one rotation as a batch of shape (1,).
func Single(r Rotation) *Batch {
	return &Batch{rotations: []Rotation{r}, shape: nav.MustShape(1)}
}

// Shape returns the navigation shape of the batch.
func (b *Batch) Shape() nav.Shape {
	return b.shape.Clone()
}

// Len returns the number of orientations.
func (b *Batch) Len() int {
	return len(b.rotations)
}

// At returns the orientation at the given flat row-major index.
func (b *Batch) At(flat int) Rotation {
	return b.rotations[flat]
}

// Clone returns an independent copy of the batch.
func (b *Batch) Clone() *Batch {
	rs := make([]Rotation, len(b.rotations))
	copy(rs, b.rotations)
	return &Batch{rotations: rs, shape: b.shape.Clone()}
}
