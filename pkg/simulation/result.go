package simulation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"kikusim/internal/nav"
	"kikusim/pkg/crystal"
	"kikusim/pkg/detector"
	"kikusim/pkg/rotation"
)

// GeometricalSimulation is the immutable result of projecting Kikuchi lines
// and zone axes onto a detector for a batch of orientations. All inputs are
// deep-copied in, and every query is a pure derivation from the stored
// arrays, so results are reproducible bit for bit and safe for concurrent
// use.
type GeometricalSimulation struct {
	detector   *detector.Detector
	rotations  *rotation.Batch
	reflectors *crystal.ReflectorSet
	zoneAxes   []crystal.ZoneAxis

	lines *lineFeatures
	axes  *zoneAxisFeatures

	maxRGnomonic float64

	// Precomputed pixel-space geometry, flattened like the feature arrays.
	linesPixel     [][4]float64
	axesPixel      [][2]float64
	labelsPixel    [][2]float64
	labelsGnomonic [][2]float64
}

func newGeometricalSimulation(
	det *detector.Detector,
	rotations *rotation.Batch,
	reflectors *crystal.ReflectorSet,
	zoneAxes []crystal.ZoneAxis,
	lines *lineFeatures,
	axes *zoneAxisFeatures,
	maxR float64,
) *GeometricalSimulation {
	g := &GeometricalSimulation{
		detector:     det.Clone(),
		rotations:    rotations.Clone(),
		reflectors:   reflectors.Clone(),
		zoneAxes:     append([]crystal.ZoneAxis(nil), zoneAxes...),
		lines:        lines,
		axes:         axes,
		maxRGnomonic: maxR,
	}
	g.setLinesPixelCoordinates()
	g.setZoneAxesPixelCoordinates()
	g.setLabelCoordinates()
	return g
}

// detectorIndex maps a navigation position to the detector position serving
// it: identical when the detector carries one PC per position, 0 otherwise.
func (g *GeometricalSimulation) detectorIndex(p int) int {
	if g.detector.NavSize() == 1 {
		return 0
	}
	return p
}

// pixelX converts a gnomonic x coordinate to detector pixel columns.
func (g *GeometricalSimulation) pixelX(xg float64, di int) float64 {
	pc := g.detector.PC(di)
	return xg/g.detector.XScale(di) + pc[0]*float64(g.detector.NCols-1)
}

// pixelY converts a gnomonic y coordinate to detector pixel rows, flipping
// the axis since pixel rows grow downwards.
func (g *GeometricalSimulation) pixelY(yg float64, di int) float64 {
	pc := g.detector.PC(di)
	return -yg/g.detector.YScale(di) + pc[1]*float64(g.detector.NRows-1)
}

func (g *GeometricalSimulation) setLinesPixelCoordinates() {
	g.linesPixel = make([][4]float64, len(g.lines.traceGnomonic))
	for p := 0; p < g.lines.nPos; p++ {
		di := g.detectorIndex(p)
		for i := 0; i < g.lines.nLines; i++ {
			k := p*g.lines.nLines + i
			t := g.lines.traceGnomonic[k]
			g.linesPixel[k] = [4]float64{
				g.pixelX(t[0], di),
				g.pixelY(t[1], di),
				g.pixelX(t[2], di),
				g.pixelY(t[3], di),
			}
		}
	}
}

func (g *GeometricalSimulation) setZoneAxesPixelCoordinates() {
	g.axesPixel = make([][2]float64, len(g.axes.xyGnomonic))
	for p := 0; p < g.axes.nPos; p++ {
		di := g.detectorIndex(p)
		for i := 0; i < g.axes.nAxes; i++ {
			k := p*g.axes.nAxes + i
			xy := g.axes.xyGnomonic[k]
			g.axesPixel[k] = [2]float64{
				g.pixelX(xy[0], di),
				g.pixelY(xy[1], di),
			}
		}
	}
}

// setLabelCoordinates places zone axis labels slightly above their axis
// point: 5% of the detector height in pixel space, 3% of the gnomonic y span
// in gnomonic space.
func (g *GeometricalSimulation) setLabelCoordinates() {
	g.labelsPixel = make([][2]float64, len(g.axesPixel))
	g.labelsGnomonic = make([][2]float64, len(g.axes.xyGnomonic))
	for p := 0; p < g.axes.nPos; p++ {
		di := g.detectorIndex(p)
		yr := g.detector.YRange(di)
		for i := 0; i < g.axes.nAxes; i++ {
			k := p*g.axes.nAxes + i
			g.labelsPixel[k] = [2]float64{
				g.axesPixel[k][0],
				g.axesPixel[k][1] - 0.05*float64(g.detector.NRows),
			}
			g.labelsGnomonic[k] = [2]float64{
				g.axes.xyGnomonic[k][0],
				g.axes.xyGnomonic[k][1] + 0.03*(yr[1]-yr[0]),
			}
		}
	}
}

// Detector returns a copy of the stored detector geometry.
func (g *GeometricalSimulation) Detector() *detector.Detector {
	return g.detector.Clone()
}

// Rotations returns a copy of the stored orientation batch.
func (g *GeometricalSimulation) Rotations() *rotation.Batch {
	return g.rotations.Clone()
}

// Reflectors returns a copy of the visible reflector subset.
func (g *GeometricalSimulation) Reflectors() *crystal.ReflectorSet {
	return g.reflectors.Clone()
}

// ZoneAxes returns the visible zone axes.
func (g *GeometricalSimulation) ZoneAxes() []crystal.ZoneAxis {
	return append([]crystal.ZoneAxis(nil), g.zoneAxes...)
}

// NavigationShape returns the navigation shape of the orientation batch.
func (g *GeometricalSimulation) NavigationShape() nav.Shape {
	return g.rotations.Shape()
}

// MaxGnomonicRadius returns the clipping radius used for line chords.
func (g *GeometricalSimulation) MaxGnomonicRadius() float64 {
	return g.maxRGnomonic
}

// String gives a short description of the simulation.
func (g *GeometricalSimulation) String() string {
	return fmt.Sprintf("GeometricalSimulation %v: %d reflectors, %d zone axes, %s",
		g.rotations.Shape(), g.reflectors.Len(), len(g.zoneAxes), g.reflectors.Phase)
}

// flatIndices resolves a navigation index to the flat positions to query:
// all positions in row-major order when index is nil, else the single
// addressed position.
func (g *GeometricalSimulation) flatIndices(index []int) ([]int, error) {
	shape := g.rotations.Shape()
	if index == nil {
		all := make([]int, shape.Size())
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	flat, err := shape.FlatIndex(index...)
	if err != nil {
		return nil, err
	}
	return []int{flat}, nil
}

// LinesCoordinates returns the start and end coordinates (x1, y1, x2, y2) of
// the Kikuchi lines visible in the pattern at the given navigation index, in
// pixel or gnomonic units. A nil index concatenates all patterns in
// row-major order. Lines whose chord leaves the maximum gnomonic radius are
// omitted even where the hemisphere flag holds.
func (g *GeometricalSimulation) LinesCoordinates(index []int, space CoordinateSpace) ([][4]float64, error) {
	positions, err := g.flatIndices(index)
	if err != nil {
		return nil, err
	}
	src := g.linesPixel
	if space == CoordinatesGnomonic {
		src = g.lines.traceGnomonic
	}
	var out [][4]float64
	for _, p := range positions {
		for i := 0; i < g.lines.nLines; i++ {
			c := src[p*g.lines.nLines+i]
			if math.IsNaN(c[0]) || math.IsNaN(c[1]) || math.IsNaN(c[2]) || math.IsNaN(c[3]) {
				continue
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// ZoneAxesCoordinates returns the gnomonic projection point of each zone
// axis visible in the pattern at the given navigation index, in pixel or
// gnomonic units. A nil index concatenates all patterns in row-major order.
func (g *GeometricalSimulation) ZoneAxesCoordinates(index []int, space CoordinateSpace) ([][2]float64, error) {
	positions, err := g.flatIndices(index)
	if err != nil {
		return nil, err
	}
	src := g.axesPixel
	if space == CoordinatesGnomonic {
		src = g.axes.xyGnomonic
	}
	var out [][2]float64
	for _, p := range positions {
		for i := 0; i < g.axes.nAxes; i++ {
			c := src[p*g.axes.nAxes+i]
			if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
				continue
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// LinesInPattern reports, for the pattern at the given navigation index,
// which of the visible-in-some-pattern reflectors have their hemisphere flag
// set there.
func (g *GeometricalSimulation) LinesInPattern(index []int) ([]bool, error) {
	positions, err := g.flatIndices(index)
	if err != nil {
		return nil, err
	}
	if len(positions) != 1 {
		return nil, fmt.Errorf("in-pattern flags require an explicit navigation index")
	}
	p := positions[0]
	out := make([]bool, g.lines.nLines)
	copy(out, g.lines.inPattern[p*g.lines.nLines:(p+1)*g.lines.nLines])
	return out, nil
}

// ZoneAxesInPattern is LinesInPattern for zone axes.
func (g *GeometricalSimulation) ZoneAxesInPattern(index []int) ([]bool, error) {
	positions, err := g.flatIndices(index)
	if err != nil {
		return nil, err
	}
	if len(positions) != 1 {
		return nil, fmt.Errorf("in-pattern flags require an explicit navigation index")
	}
	p := positions[0]
	out := make([]bool, g.axes.nAxes)
	copy(out, g.axes.inPattern[p*g.axes.nAxes:(p+1)*g.axes.nAxes])
	return out, nil
}

// PCXYOffsets returns the projection center's pixel-space offset per
// detector navigation position: (PCx·(ncols−1), PCy·(nrows−1)). This is the
// translation applied when mapping gnomonic to pixel coordinates.
func (g *GeometricalSimulation) PCXYOffsets() [][2]float64 {
	out := make([][2]float64, g.detector.NavSize())
	for i := range out {
		pc := g.detector.PC(i)
		out[i] = [2]float64{
			pc[0] * float64(g.detector.NCols-1),
			pc[1] * float64(g.detector.NRows-1),
		}
	}
	return out
}

// zoneAxisMatrix stacks reduced uvw triplets as an m×3 row-vector matrix, or
// nil for an empty axis list.
func zoneAxisMatrix(axes []crystal.ZoneAxis) *mat.Dense {
	if len(axes) == 0 {
		return nil
	}
	m := mat.NewDense(len(axes), 3, nil)
	for i, a := range axes {
		m.SetRow(i, []float64{float64(a.UVW[0]), float64(a.UVW[1]), float64(a.UVW[2])})
	}
	return m
}
