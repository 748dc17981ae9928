package simulation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// lineFeatures holds the per-pattern trace geometry of the visible Kikuchi
// lines. Entries are flattened over (navigation position, line) with the
// line index fastest; coordinates are NaN where a line is not visible at a
// position.
type lineFeatures struct {
	nPos   int
	nLines int

	// inPattern marks, per (position, line), whether the line's pole lies
	// in the upper hemisphere there. Necessary but not sufficient for
	// visibility.
	inPattern []bool

	// traceGnomonic holds the chord endpoints (x1, y1, x2, y2) of the
	// great-circle trace on the circle of maximum gnomonic radius.
	traceGnomonic [][4]float64
}

// newLineFeatures derives trace chords from detector-frame line normals.
// The Hesse normal form of the trace gives its distance from the projection
// center, tan(π/2 − polar); a line is visible only where its pole is in the
// upper hemisphere and that distance stays inside the maximum gnomonic
// radius, in which case the chord endpoints lie on that radius at the Hesse
// angle on either side of the antipodal azimuth.
func newLineFeatures(vecs []*mat.Dense, inPattern [][]bool, maxR float64) *lineFeatures {
	nPos := len(vecs)
	nLines := 0
	if nPos > 0 && vecs[0] != nil {
		nLines, _ = vecs[0].Dims()
	}
	f := &lineFeatures{
		nPos:          nPos,
		nLines:        nLines,
		inPattern:     make([]bool, nPos*nLines),
		traceGnomonic: make([][4]float64, nPos*nLines),
	}
	nan := math.NaN()
	for p := 0; p < nPos; p++ {
		for i := 0; i < nLines; i++ {
			k := p*nLines + i
			f.inPattern[k] = inPattern[p][i]

			x, y, z := vecs[p].At(i, 0), vecs[p].At(i, 1), vecs[p].At(i, 2)
			norm := math.Sqrt(x*x + y*y + z*z)
			if norm < zeroTol {
				f.traceGnomonic[k] = [4]float64{nan, nan, nan, nan}
				continue
			}
			polar := math.Acos(z / norm)
			hesse := math.Tan(0.5*math.Pi - polar)
			if !inPattern[p][i] || math.Abs(hesse) >= maxR {
				f.traceGnomonic[k] = [4]float64{nan, nan, nan, nan}
				continue
			}
			azimuth := math.Atan2(y, x)
			hesseAlpha := math.Acos(hesse / maxR)
			a1 := azimuth - math.Pi + hesseAlpha
			a2 := azimuth - math.Pi - hesseAlpha
			f.traceGnomonic[k] = [4]float64{
				maxR * math.Cos(a1),
				maxR * math.Sin(a1),
				maxR * math.Cos(a2),
				maxR * math.Sin(a2),
			}
		}
	}
	return f
}

// zoneAxisFeatures holds the per-pattern gnomonic points of the visible zone
// axes, flattened like lineFeatures, with NaN marking invisible entries.
type zoneAxisFeatures struct {
	nPos       int
	nAxes      int
	inPattern  []bool
	xyGnomonic [][2]float64
}

// newZoneAxisFeatures derives zone axis points from detector-frame
// directions. An axis is visible where its direction is in the upper
// hemisphere and its gnomonic distance tan(polar) stays inside the maximum
// gnomonic radius.
func newZoneAxisFeatures(vecs []*mat.Dense, inPattern [][]bool, maxR float64) *zoneAxisFeatures {
	nPos := len(vecs)
	nAxes := 0
	if nPos > 0 && vecs[0] != nil {
		nAxes, _ = vecs[0].Dims()
	}
	f := &zoneAxisFeatures{
		nPos:       nPos,
		nAxes:      nAxes,
		inPattern:  make([]bool, nPos*nAxes),
		xyGnomonic: make([][2]float64, nPos*nAxes),
	}
	nan := math.NaN()
	for p := 0; p < nPos; p++ {
		for i := 0; i < nAxes; i++ {
			k := p*nAxes + i
			f.inPattern[k] = inPattern[p][i]

			x, y, z := vecs[p].At(i, 0), vecs[p].At(i, 1), vecs[p].At(i, 2)
			norm := math.Sqrt(x*x + y*y + z*z)
			if norm < zeroTol || math.Abs(z) < zeroTol {
				f.xyGnomonic[k] = [2]float64{nan, nan}
				continue
			}
			polar := math.Acos(z / norm)
			if !inPattern[p][i] || math.Tan(polar) >= maxR {
				f.xyGnomonic[k] = [2]float64{nan, nan}
				continue
			}
			f.xyGnomonic[k] = [2]float64{x / z, y / z}
		}
	}
	return f
}
