package simulation

import (
	"fmt"
	"math"
	"strings"

	"kikusim/pkg/crystal"
)

// Segment is one line segment in detector or gnomonic coordinates.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Point is one overlay point.
type Point struct {
	X, Y float64
}

// LineStyle styles a set of line segments for an external renderer.
type LineStyle struct {
	Color string
	Width float64
	Alpha float64
}

// MarkerStyle styles a set of overlay points.
type MarkerStyle struct {
	Color  string
	Symbol string
	Size   float64
	Alpha  float64
}

// TextStyle styles a set of overlay labels.
type TextStyle struct {
	Color string
	Size  float64
}

// LineCollection groups the visible Kikuchi line segments of one pattern.
type LineCollection struct {
	Segments []Segment
	Style    LineStyle
}

// PointCollection groups overlay points (zone axes or the projection
// center) of one pattern.
type PointCollection struct {
	Points []Point
	Style  MarkerStyle
}

// TextCollection groups zone axis labels of one pattern.
type TextCollection struct {
	Positions []Point
	Texts     []string
	Style     TextStyle
}

// Collections bundles renderer-agnostic overlay primitives for one pattern.
// Entries the caller did not request are nil.
type Collections struct {
	Lines          *LineCollection
	ZoneAxes       *PointCollection
	ZoneAxesLabels *TextCollection
	PC             *PointCollection
}

// CollectionOptions selects which overlay primitives to build and how to
// style them.
type CollectionOptions struct {
	Lines          bool
	ZoneAxes       bool
	ZoneAxesLabels bool
	PC             bool

	Coordinates CoordinateSpace

	LineStyle  LineStyle
	ZoneStyle  MarkerStyle
	LabelStyle TextStyle
	PCStyle    MarkerStyle
}

// DefaultCollectionOptions enables the Kikuchi lines only, in pixel
// coordinates, with the conventional styling.
func DefaultCollectionOptions() CollectionOptions {
	return CollectionOptions{
		Lines:       true,
		Coordinates: CoordinatesPixel,
		LineStyle:   LineStyle{Color: "red", Width: 1, Alpha: 1},
		ZoneStyle:   MarkerStyle{Color: "white", Symbol: "circle", Size: 4, Alpha: 1},
		LabelStyle:  TextStyle{Color: "black", Size: 10},
		PCStyle:     MarkerStyle{Color: "gold", Symbol: "star", Size: 15, Alpha: 1},
	}
}

// AsCollections builds overlay primitives for the pattern at the given
// navigation index (nil addresses the pattern at the origin of the batch),
// restricted to the features visible there.
func (g *GeometricalSimulation) AsCollections(index []int, opts CollectionOptions) (*Collections, error) {
	shape := g.rotations.Shape()
	if index == nil {
		index = make([]int, len(shape))
	}
	p, err := shape.FlatIndex(index...)
	if err != nil {
		return nil, err
	}
	di := g.detectorIndex(p)

	coll := &Collections{}

	if opts.Lines {
		src := g.linesPixel
		if opts.Coordinates == CoordinatesGnomonic {
			src = g.lines.traceGnomonic
		}
		lc := &LineCollection{Style: opts.LineStyle}
		for i := 0; i < g.lines.nLines; i++ {
			c := src[p*g.lines.nLines+i]
			if math.IsNaN(c[0]) {
				continue
			}
			lc.Segments = append(lc.Segments, Segment{X1: c[0], Y1: c[1], X2: c[2], Y2: c[3]})
		}
		coll.Lines = lc
	}

	if opts.ZoneAxes {
		src := g.axesPixel
		if opts.Coordinates == CoordinatesGnomonic {
			src = g.axes.xyGnomonic
		}
		pc := &PointCollection{Style: opts.ZoneStyle}
		for i := 0; i < g.axes.nAxes; i++ {
			c := src[p*g.axes.nAxes+i]
			if math.IsNaN(c[0]) {
				continue
			}
			pc.Points = append(pc.Points, Point{X: c[0], Y: c[1]})
		}
		coll.ZoneAxes = pc
	}

	if opts.ZoneAxesLabels {
		src := g.labelsPixel
		if opts.Coordinates == CoordinatesGnomonic {
			src = g.labelsGnomonic
		}
		tc := &TextCollection{Style: opts.LabelStyle}
		for i := 0; i < g.axes.nAxes; i++ {
			c := src[p*g.axes.nAxes+i]
			if math.IsNaN(c[0]) {
				continue
			}
			tc.Positions = append(tc.Positions, Point{X: c[0], Y: c[1]})
			tc.Texts = append(tc.Texts, formatZoneAxisLabel(g.zoneAxes[i]))
		}
		coll.ZoneAxesLabels = tc
	}

	if opts.PC {
		var pt Point
		if opts.Coordinates == CoordinatesGnomonic {
			pt = Point{X: 0, Y: 0}
		} else {
			off := g.PCXYOffsets()[di]
			pt = Point{X: off[0], Y: off[1]}
		}
		coll.PC = &PointCollection{Points: []Point{pt}, Style: opts.PCStyle}
	}

	return coll, nil
}

// Marker is a batched overlay descriptor carrying one entry per navigation
// position, suitable for attaching to a whole orientation-map image stack.
// Exactly one of the per-position payloads is populated, matching Kind.
type Marker struct {
	Kind MarkerKind

	// Segments holds, per navigation position in row-major order, the
	// visible line segments there. Only set for MarkerLines.
	Segments [][]Segment

	// Offsets holds, per navigation position, the visible overlay points.
	// Set for MarkerZoneAxes, MarkerZoneAxesLabels and MarkerPC.
	Offsets [][]Point

	// Texts holds, per navigation position, the label strings paired with
	// Offsets. Only set for MarkerZoneAxesLabels.
	Texts [][]string

	LineStyle   LineStyle
	MarkerStyle MarkerStyle
	TextStyle   TextStyle
}

// MarkerKind discriminates the payload of a Marker.
type MarkerKind int

const (
	MarkerLines MarkerKind = iota
	MarkerZoneAxes
	MarkerZoneAxesLabels
	MarkerPC
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerLines:
		return "lines"
	case MarkerZoneAxes:
		return "zone axes"
	case MarkerZoneAxesLabels:
		return "zone axes labels"
	case MarkerPC:
		return "projection center"
	default:
		return fmt.Sprintf("MarkerKind(%d)", int(k))
	}
}

// AsMarkers packages the requested overlay features as batched markers, one
// payload entry per navigation position.
func (g *GeometricalSimulation) AsMarkers(opts CollectionOptions) []Marker {
	nPos := g.rotations.Shape().Size()
	var markers []Marker

	if opts.Lines {
		m := Marker{Kind: MarkerLines, LineStyle: opts.LineStyle, Segments: make([][]Segment, nPos)}
		src := g.linesPixel
		if opts.Coordinates == CoordinatesGnomonic {
			src = g.lines.traceGnomonic
		}
		for p := 0; p < nPos; p++ {
			for i := 0; i < g.lines.nLines; i++ {
				c := src[p*g.lines.nLines+i]
				if math.IsNaN(c[0]) {
					continue
				}
				m.Segments[p] = append(m.Segments[p], Segment{X1: c[0], Y1: c[1], X2: c[2], Y2: c[3]})
			}
		}
		markers = append(markers, m)
	}

	if opts.ZoneAxes {
		m := Marker{Kind: MarkerZoneAxes, MarkerStyle: opts.ZoneStyle, Offsets: make([][]Point, nPos)}
		src := g.axesPixel
		if opts.Coordinates == CoordinatesGnomonic {
			src = g.axes.xyGnomonic
		}
		for p := 0; p < nPos; p++ {
			for i := 0; i < g.axes.nAxes; i++ {
				c := src[p*g.axes.nAxes+i]
				if math.IsNaN(c[0]) {
					continue
				}
				m.Offsets[p] = append(m.Offsets[p], Point{X: c[0], Y: c[1]})
			}
		}
		markers = append(markers, m)
	}

	if opts.ZoneAxesLabels {
		m := Marker{
			Kind:      MarkerZoneAxesLabels,
			TextStyle: opts.LabelStyle,
			Offsets:   make([][]Point, nPos),
			Texts:     make([][]string, nPos),
		}
		src := g.labelsPixel
		if opts.Coordinates == CoordinatesGnomonic {
			src = g.labelsGnomonic
		}
		for p := 0; p < nPos; p++ {
			for i := 0; i < g.axes.nAxes; i++ {
				c := src[p*g.axes.nAxes+i]
				if math.IsNaN(c[0]) {
					continue
				}
				m.Offsets[p] = append(m.Offsets[p], Point{X: c[0], Y: c[1]})
				m.Texts[p] = append(m.Texts[p], formatZoneAxisLabel(g.zoneAxes[i]))
			}
		}
		markers = append(markers, m)
	}

	if opts.PC {
		m := Marker{Kind: MarkerPC, MarkerStyle: opts.PCStyle, Offsets: make([][]Point, nPos)}
		offsets := g.PCXYOffsets()
		for p := 0; p < nPos; p++ {
			var pt Point
			if opts.Coordinates == CoordinatesGnomonic {
				pt = Point{}
			} else {
				off := offsets[g.detectorIndex(p)]
				pt = Point{X: off[0], Y: off[1]}
			}
			m.Offsets[p] = []Point{pt}
		}
		markers = append(markers, m)
	}

	return markers
}

// formatZoneAxisLabel writes reduced uvw indices in the conventional
// crystallographic direction notation, with a combining overbar marking
// negative indices, e.g. [11̄0].
func formatZoneAxisLabel(a crystal.ZoneAxis) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, v := range a.UVW {
		if v < 0 {
			for _, digit := range fmt.Sprintf("%d", -v) {
				b.WriteRune(digit)
				b.WriteRune('̅')
			}
		} else {
			fmt.Fprintf(&b, "%d", v)
		}
	}
	b.WriteByte(']')
	return b.String()
}
