package simulation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"kikusim/pkg/detector"
	"kikusim/pkg/rotation"
)

// zeroTol is the absolute tolerance used for all near-zero degeneracy checks
// in the projection pipeline, such as gnomonic denominators.
const zeroTol = 1e-12

// detectorFrameMatrix returns the rotation matrix expressing the detector
// reference frame in the sample reference frame: the sample tilt composed
// with the inverse detector orientation, followed by the fixed -90° axis
// correction about the detector normal.
func detectorFrameMatrix(det *detector.Detector) *mat.Dense {
	uSample := rotation.FromEulerDeg(0, det.SampleTilt, 0).Matrix()

	e := det.EulerAngles()
	uDetG := rotation.FromEulerDeg(e[0], e[1], e[2]).Matrix()

	var uSBruker mat.Dense
	uSBruker.Mul(uSample, uDetG.T())

	axisFix, err := rotation.FromAxisAngle([3]float64{0, 0, -1}, -math.Pi/2)
	if err != nil {
		// Fixed axis is non-zero.
		panic(err)
	}

	var uS mat.Dense
	uS.Mul(axisFix.Matrix(), &uSBruker)
	return &uS
}

// crystalDetectorMatrices combines every crystal orientation with the
// detector frame matrix, giving one crystal-to-detector matrix per navigation
// position.
func crystalDetectorMatrices(rotations *rotation.Batch, uS *mat.Dense) []*mat.Dense {
	out := make([]*mat.Dense, rotations.Len())
	for i := 0; i < rotations.Len(); i++ {
		var uOS mat.Dense
		uOS.Mul(rotations.At(i).Matrix(), uS)
		out[i] = &uOS
	}
	return out
}

// transformRows maps lattice index row vectors (n×3) into the detector frame
// for every navigation position: rows · (basis · uOS). For hkl rows the basis
// is the reciprocal basis, for uvw rows the direct basis itself.
func transformRows(rows *mat.Dense, basis *mat.Dense, uOS []*mat.Dense) []*mat.Dense {
	out := make([]*mat.Dense, len(uOS))
	for p, u := range uOS {
		var m mat.Dense
		m.Mul(basis, u)
		var coords mat.Dense
		coords.Mul(rows, &m)
		out[p] = &coords
	}
	return out
}

// detectorZComponents computes only the detector-frame z component of each
// row vector at each navigation position. This is the cheap existence test
// run before any full coordinate transform: a vector whose trace never
// reaches the upper hemisphere is dropped without computing x and y.
func detectorZComponents(rows *mat.Dense, basis *mat.Dense, uOS []*mat.Dense) [][]float64 {
	n, _ := rows.Dims()
	out := make([][]float64, len(uOS))
	for p, u := range uOS {
		// Third column of basis · uOS
		var col [3]float64
		for i := 0; i < 3; i++ {
			col[i] = basis.At(i, 0)*u.At(0, 2) + basis.At(i, 1)*u.At(1, 2) + basis.At(i, 2)*u.At(2, 2)
		}
		z := make([]float64, n)
		for i := 0; i < n; i++ {
			z[i] = rows.At(i, 0)*col[0] + rows.At(i, 1)*col[1] + rows.At(i, 2)*col[2]
		}
		out[p] = z
	}
	return out
}
