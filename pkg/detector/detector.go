// Package detector models the EBSD detector geometry the simulation core
// projects onto: pixel grid, tilts, and one projection center per navigation
// position, with the derived gnomonic coordinate ranges of the sensing area.
package detector

import (
	"fmt"
	"math"

	"kikusim/internal/nav"
)

// Detector describes a flat EBSD detector and its placement relative to the
// tilted sample. Projection centers follow the Bruker convention: PCx from
// the left edge, PCy from the top edge, PCz as distance to the sample, all as
// fractions of the detector extent.
type Detector struct {
	// NRows, NCols are the pixel shape of the detector.
	NRows, NCols int

	// PxSize is the physical pixel size in µm.
	PxSize float64

	// Binning is the camera binning factor.
	Binning float64

	// Tilt is the detector tilt from vertical in degrees.
	Tilt float64

	// Azimuthal is the azimuthal angle of the detector about the sample
	// normal in degrees.
	Azimuthal float64

	// SampleTilt is the sample tilt from horizontal in degrees.
	SampleTilt float64

	pc       [][3]float64
	navShape nav.Shape
}

// New returns a detector with the given pixel shape and the conventional
// defaults: projection center (0.5, 0.5, 0.5) at a single navigation
// position, 70° sample tilt, untilted detector, unit pixel size and binning.
func New(nrows, ncols int) (*Detector, error) {
	if nrows < 1 || ncols < 1 {
		return nil, fmt.Errorf("detector shape must be positive, got (%d, %d)", nrows, ncols)
	}
	return &Detector{
		NRows:      nrows,
		NCols:      ncols,
		PxSize:     1,
		Binning:    1,
		SampleTilt: 70,
		pc:         [][3]float64{{0.5, 0.5, 0.5}},
		navShape:   nav.MustShape(1),
	}, nil
}

// SetPC assigns one projection center per navigation position. The shape must
// be (1,) or a 1D/2D scan shape matching the number of triplets; all PCz must
// be positive.
func (d *Detector) SetPC(shape nav.Shape, pc ...[3]float64) error {
	if len(shape) == 0 || len(shape) > nav.MaxDimensions {
		return fmt.Errorf("projection center shape must have rank 1 or 2, got %v", shape)
	}
	if len(pc) != shape.Size() {
		return fmt.Errorf("got %d projection centers for navigation shape %v of size %d",
			len(pc), shape, shape.Size())
	}
	for i, p := range pc {
		if p[2] <= 0 {
			return fmt.Errorf("projection center %d has non-positive PCz %g", i, p[2])
		}
	}
	d.pc = make([][3]float64, len(pc))
	copy(d.pc, pc)
	d.navShape = shape.Clone()
	return nil
}

// NavigationShape returns the navigation shape of the projection centers.
func (d *Detector) NavigationShape() nav.Shape {
	return d.navShape.Clone()
}

// NavSize returns the number of navigation positions.
func (d *Detector) NavSize() int {
	return len(d.pc)
}

// PC returns the projection center at the given flat navigation index.
func (d *Detector) PC(i int) [3]float64 {
	return d.pc[i]
}

// PCAverage returns the mean projection center over all positions.
func (d *Detector) PCAverage() [3]float64 {
	var avg [3]float64
	for _, p := range d.pc {
		avg[0] += p[0]
		avg[1] += p[1]
		avg[2] += p[2]
	}
	n := float64(len(d.pc))
	avg[0] /= n
	avg[1] /= n
	avg[2] /= n
	return avg
}

// AspectRatio returns the width-over-height pixel aspect of the detector.
func (d *Detector) AspectRatio() float64 {
	return float64(d.NCols) / float64(d.NRows)
}

// EulerAngles returns the Bunge ZXZ Euler angles of the detector frame in
// degrees: (azimuthal, 90 + tilt, 0).
func (d *Detector) EulerAngles() [3]float64 {
	return [3]float64{d.Azimuthal, 90 + d.Tilt, 0}
}

// XRange returns the gnomonic x extent of the sensing area at navigation
// position i.
func (d *Detector) XRange(i int) [2]float64 {
	p := d.pc[i]
	ar := d.AspectRatio()
	return [2]float64{-ar * p[0] / p[2], ar * (1 - p[0]) / p[2]}
}

// YRange returns the gnomonic y extent of the sensing area at navigation
// position i. The gnomonic y axis points up while PCy is measured from the
// top edge.
func (d *Detector) YRange(i int) [2]float64 {
	p := d.pc[i]
	return [2]float64{-(1 - p[1]) / p[2], p[1] / p[2]}
}

// XScale returns the gnomonic width of one pixel column at position i.
func (d *Detector) XScale(i int) float64 {
	r := d.XRange(i)
	if d.NCols == 1 {
		return r[1] - r[0]
	}
	return (r[1] - r[0]) / float64(d.NCols-1)
}

// YScale returns the gnomonic height of one pixel row at position i.
func (d *Detector) YScale(i int) float64 {
	r := d.YRange(i)
	if d.NRows == 1 {
		return r[1] - r[0]
	}
	return (r[1] - r[0]) / float64(d.NRows-1)
}

// RMax returns the gnomonic distance from the projection center to the
// farthest detector corner at position i.
func (d *Detector) RMax(i int) float64 {
	xr := d.XRange(i)
	yr := d.YRange(i)
	rMax := 0.0
	for _, x := range xr {
		for _, y := range yr {
			if r := x*x + y*y; r > rMax {
				rMax = r
			}
		}
	}
	return math.Sqrt(rMax)
}

// MaxGnomonicRadius returns the largest RMax over all navigation positions.
// Kikuchi line chords are clipped to the circle of this radius.
func (d *Detector) MaxGnomonicRadius() float64 {
	max := 0.0
	for i := range d.pc {
		if r := d.RMax(i); r > max {
			max = r
		}
	}
	return max
}

// Clone returns an independent copy of the detector.
func (d *Detector) Clone() *Detector {
	pc := make([][3]float64, len(d.pc))
	copy(pc, d.pc)
	return &Detector{
		NRows:      d.NRows,
		NCols:      d.NCols,
		PxSize:     d.PxSize,
		Binning:    d.Binning,
		Tilt:       d.Tilt,
		Azimuthal:  d.Azimuthal,
		SampleTilt: d.SampleTilt,
		pc:         pc,
		navShape:   d.navShape.Clone(),
	}
}
