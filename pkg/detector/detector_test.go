package detector

import (
	"math"
	"testing"

	"kikusim/internal/nav"
)

// TestNewDefaults verifies the conventional default geometry
func TestNewDefaults(t *testing.T) {
	det, err := New(60, 60)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if det.NRows != 60 || det.NCols != 60 {
		t.Errorf("Expected 60x60 detector, got %dx%d", det.NRows, det.NCols)
	}
	if det.SampleTilt != 70 {
		t.Errorf("Expected 70 degree sample tilt, got %g", det.SampleTilt)
	}
	if det.Tilt != 0 || det.Azimuthal != 0 {
		t.Errorf("Expected untilted detector, got tilt %g azimuthal %g", det.Tilt, det.Azimuthal)
	}
	if det.NavSize() != 1 || !det.NavigationShape().Equal(nav.MustShape(1)) {
		t.Errorf("Expected single navigation position, got %v", det.NavigationShape())
	}
	if det.PC(0) != [3]float64{0.5, 0.5, 0.5} {
		t.Errorf("Expected PC (0.5, 0.5, 0.5), got %v", det.PC(0))
	}

	if _, err := New(0, 60); err == nil {
		t.Error("Expected error for zero rows")
	}
	if _, err := New(60, -1); err == nil {
		t.Error("Expected error for negative columns")
	}
}

// TestGnomonicRanges verifies the gnomonic bounds, pixel scales and corner
// radius of the default square detector
func TestGnomonicRanges(t *testing.T) {
	det, err := New(60, 60)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	xr := det.XRange(0)
	yr := det.YRange(0)
	if math.Abs(xr[0]+1) > 1e-12 || math.Abs(xr[1]-1) > 1e-12 {
		t.Errorf("Expected x range [-1, 1], got %v", xr)
	}
	if math.Abs(yr[0]+1) > 1e-12 || math.Abs(yr[1]-1) > 1e-12 {
		t.Errorf("Expected y range [-1, 1], got %v", yr)
	}

	want := 2.0 / 59
	if math.Abs(det.XScale(0)-want) > 1e-12 || math.Abs(det.YScale(0)-want) > 1e-12 {
		t.Errorf("Expected scales %v, got (%v, %v)", want, det.XScale(0), det.YScale(0))
	}

	if math.Abs(det.RMax(0)-math.Sqrt2) > 1e-12 {
		t.Errorf("Expected corner radius sqrt(2), got %v", det.RMax(0))
	}
}

// TestGnomonicRangesOffCenterPC verifies the bounds for an asymmetric
// projection center and a non-square detector
func TestGnomonicRangesOffCenterPC(t *testing.T) {
	det, err := New(60, 80)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := det.SetPC(nav.MustShape(1), [3]float64{0.4, 0.2, 0.6}); err != nil {
		t.Fatalf("SetPC failed: %v", err)
	}

	ar := 80.0 / 60
	xr := det.XRange(0)
	if math.Abs(xr[0]-(-ar*0.4/0.6)) > 1e-12 || math.Abs(xr[1]-ar*0.6/0.6) > 1e-12 {
		t.Errorf("Unexpected x range %v", xr)
	}
	yr := det.YRange(0)
	if math.Abs(yr[0]-(-0.8/0.6)) > 1e-12 || math.Abs(yr[1]-0.2/0.6) > 1e-12 {
		t.Errorf("Unexpected y range %v", yr)
	}

	// Farthest corner is bottom left here
	want := math.Hypot(xr[0], yr[0])
	if math.Abs(det.RMax(0)-want) > 1e-12 {
		t.Errorf("Expected corner radius %v, got %v", want, det.RMax(0))
	}
}

// TestSetPC verifies navigation shape and PCz validation
func TestSetPC(t *testing.T) {
	det, err := New(60, 60)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	pcs := [][3]float64{{0.4, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.6, 0.5, 0.5}, {0.5, 0.4, 0.6}}
	if err := det.SetPC(nav.MustShape(2, 2), pcs...); err != nil {
		t.Fatalf("SetPC failed: %v", err)
	}
	if det.NavSize() != 4 || !det.NavigationShape().Equal(nav.MustShape(2, 2)) {
		t.Errorf("Expected 4 positions of shape (2, 2), got %d of %v", det.NavSize(), det.NavigationShape())
	}
	if det.PC(3) != pcs[3] {
		t.Errorf("Expected PC %v at flat index 3, got %v", pcs[3], det.PC(3))
	}

	avg := det.PCAverage()
	if math.Abs(avg[0]-0.5) > 1e-12 || math.Abs(avg[1]-0.475) > 1e-12 || math.Abs(avg[2]-0.525) > 1e-12 {
		t.Errorf("Unexpected PC average %v", avg)
	}

	// Caller's slice must not alias the detector
	pcs[0] = [3]float64{0, 0, 1}
	if det.PC(0) != [3]float64{0.4, 0.5, 0.5} {
		t.Error("Detector shares storage with the caller's PC slice")
	}

	if err := det.SetPC(nav.MustShape(2), pcs[0]); err == nil {
		t.Error("Expected error for count and shape size mismatch")
	}
	if err := det.SetPC(nav.MustShape(1), [3]float64{0.5, 0.5, 0}); err == nil {
		t.Error("Expected error for zero PCz")
	}
	if err := det.SetPC(nav.MustShape(1), [3]float64{0.5, 0.5, -0.4}); err == nil {
		t.Error("Expected error for negative PCz")
	}
}

// TestEulerAngles verifies the detector frame angles
func TestEulerAngles(t *testing.T) {
	det, err := New(60, 60)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	det.Tilt = 8
	det.Azimuthal = 5
	if got := det.EulerAngles(); got != [3]float64{5, 98, 0} {
		t.Errorf("Expected Euler angles (5, 98, 0), got %v", got)
	}
}

// TestMaxGnomonicRadius verifies the maximum over navigation positions
func TestMaxGnomonicRadius(t *testing.T) {
	det, err := New(60, 60)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	// Smaller PCz pushes the corners further out in gnomonic units
	if err := det.SetPC(nav.MustShape(2), [3]float64{0.5, 0.5, 0.5}, [3]float64{0.5, 0.5, 0.25}); err != nil {
		t.Fatalf("SetPC failed: %v", err)
	}
	if math.Abs(det.MaxGnomonicRadius()-det.RMax(1)) > 1e-15 {
		t.Errorf("Expected maximum radius from position 1, got %v", det.MaxGnomonicRadius())
	}
	if det.RMax(1) <= det.RMax(0) {
		t.Errorf("Expected RMax(1) > RMax(0), got %v vs %v", det.RMax(1), det.RMax(0))
	}
}

// TestSinglePixelScales verifies the degenerate one-pixel scale fallback
func TestSinglePixelScales(t *testing.T) {
	det, err := New(1, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if det.XScale(0) <= 0 || det.YScale(0) <= 0 {
		t.Errorf("Expected positive scales for a 1x1 detector, got (%v, %v)", det.XScale(0), det.YScale(0))
	}
}

// TestClone verifies deep copy semantics
func TestClone(t *testing.T) {
	det, err := New(60, 80)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	clone := det.Clone()
	clone.NRows = 10
	if err := clone.SetPC(nav.MustShape(1), [3]float64{0.1, 0.1, 0.9}); err != nil {
		t.Fatalf("SetPC failed: %v", err)
	}
	if det.NRows != 60 || det.PC(0) != [3]float64{0.5, 0.5, 0.5} {
		t.Error("Clone shares state with the source detector")
	}
}
