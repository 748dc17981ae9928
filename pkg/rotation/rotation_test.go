package rotation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"kikusim/internal/nav"
)

func matricesEqual(t *testing.T, label string, got, want *mat.Dense, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(got.At(i, j)-want.At(i, j)) > tol {
				t.Errorf("%s (%d, %d): expected %.9f, got %.9f", label, i, j, want.At(i, j), got.At(i, j))
			}
		}
	}
}

// TestIdentity verifies the identity rotation maps to the identity matrix
func TestIdentity(t *testing.T) {
	want := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	matricesEqual(t, "Identity", Identity().Matrix(), want, 1e-15)
}

// TestFromAxisAngle verifies the matrix of a 90 degree rotation about z
func TestFromAxisAngle(t *testing.T) {
	r, err := FromAxisAngle([3]float64{0, 0, 1}, math.Pi/2)
	if err != nil {
		t.Fatalf("FromAxisAngle failed: %v", err)
	}
	// Active rotation: +x maps to +y
	want := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})
	matricesEqual(t, "Rz(90°)", r.Matrix(), want, 1e-15)

	// Axis length must not matter
	r2, err := FromAxisAngle([3]float64{0, 0, 7.5}, math.Pi/2)
	if err != nil {
		t.Fatalf("FromAxisAngle failed: %v", err)
	}
	matricesEqual(t, "scaled axis", r2.Matrix(), want, 1e-15)

	if _, err := FromAxisAngle([3]float64{0, 0, 0}, 1); err == nil {
		t.Error("Expected error for zero axis")
	}
}

// TestFromEulerSingleAngles verifies each Bunge Euler angle alone gives the
// expected elementary matrix
func TestFromEulerSingleAngles(t *testing.T) {
	phi := 70 * math.Pi / 180
	c, s := math.Cos(phi), math.Sin(phi)

	// (phi1, 0, 0) and (0, 0, phi2) are both rotations about z by the
	// negative angle
	rzNeg := mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
	matricesEqual(t, "FromEuler(phi1, 0, 0)", FromEuler(phi, 0, 0).Matrix(), rzNeg, 1e-14)
	matricesEqual(t, "FromEuler(0, 0, phi2)", FromEuler(0, 0, phi).Matrix(), rzNeg, 1e-14)

	// (0, Phi, 0) is a rotation about x by the negative angle
	rxNeg := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	})
	matricesEqual(t, "FromEuler(0, Phi, 0)", FromEuler(0, phi, 0).Matrix(), rxNeg, 1e-14)
}

// TestFromEulerComposition verifies the general matrix is the product of the
// three elementary factors
func TestFromEulerComposition(t *testing.T) {
	phi1, phi, phi2 := 0.3, 1.1, 2.4

	var want mat.Dense
	want.Mul(FromEuler(0, 0, phi2).Matrix(), FromEuler(0, phi, 0).Matrix())
	want.Mul(mat.DenseCopyOf(&want), FromEuler(phi1, 0, 0).Matrix())

	matricesEqual(t, "FromEuler", FromEuler(phi1, phi, phi2).Matrix(), &want, 1e-14)
}

// TestFromEulerDeg verifies degree and radian constructors agree
func TestFromEulerDeg(t *testing.T) {
	a := FromEulerDeg(10, 70, 30).Matrix()
	b := FromEuler(10*math.Pi/180, 70*math.Pi/180, 30*math.Pi/180).Matrix()
	matricesEqual(t, "FromEulerDeg", a, b, 1e-15)
}

// TestMulMatchesMatrixProduct verifies quaternion composition agrees with
// matrix multiplication
func TestMulMatchesMatrixProduct(t *testing.T) {
	a, err := FromAxisAngle([3]float64{1, 2, 3}, 0.7)
	if err != nil {
		t.Fatalf("FromAxisAngle failed: %v", err)
	}
	b, err := FromAxisAngle([3]float64{-2, 0, 1}, 1.9)
	if err != nil {
		t.Fatalf("FromAxisAngle failed: %v", err)
	}

	var want mat.Dense
	want.Mul(a.Matrix(), b.Matrix())
	matricesEqual(t, "Mul", a.Mul(b).Matrix(), &want, 1e-14)
}

// TestInverse verifies r · r⁻¹ is the identity
func TestInverse(t *testing.T) {
	r := FromEuler(0.3, 1.1, 2.4)
	want := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	matricesEqual(t, "Inverse", r.Mul(r.Inverse()).Matrix(), want, 1e-14)
}

// TestMatrixOrthonormal verifies rows of a rotation matrix are orthonormal
func TestMatrixOrthonormal(t *testing.T) {
	m := FromEuler(0.5, 0.9, 1.3).Matrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var dot float64
			for k := 0; k < 3; k++ {
				dot += m.At(i, k) * m.At(j, k)
			}
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > 1e-14 {
				t.Errorf("Row dot (%d, %d): expected %v, got %v", i, j, want, dot)
			}
		}
	}
}

// TestBatch verifies shape validation, layout and copy semantics
func TestBatch(t *testing.T) {
	a := FromEuler(0.1, 0.2, 0.3)
	b := FromEuler(0.4, 0.5, 0.6)

	batch, err := NewBatch(nav.MustShape(1, 2), a, b)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}
	if batch.Len() != 2 {
		t.Errorf("Expected length 2, got %d", batch.Len())
	}
	if !batch.Shape().Equal(nav.MustShape(1, 2)) {
		t.Errorf("Expected shape (1, 2), got %v", batch.Shape())
	}
	if batch.At(0).Quat() != a.Quat() || batch.At(1).Quat() != b.Quat() {
		t.Error("Batch does not preserve row-major order")
	}

	if _, err := NewBatch(nav.MustShape(2, 2), a, b); err == nil {
		t.Error("Expected error for size mismatch")
	}

	single := Single(a)
	if single.Len() != 1 || !single.Shape().Equal(nav.MustShape(1)) {
		t.Errorf("Expected shape (1,) batch, got %v of length %d", single.Shape(), single.Len())
	}

	clone := batch.Clone()
	rotations := []Rotation{b, a}
	batch2, err := NewBatch(nav.MustShape(2), rotations...)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}
	rotations[0] = Identity()
	if batch2.At(0).Quat() != b.Quat() {
		t.Error("Batch shares storage with the caller's slice")
	}
	if clone.At(0).Quat() != batch.At(0).Quat() {
		t.Error("Clone does not preserve contents")
	}
}
