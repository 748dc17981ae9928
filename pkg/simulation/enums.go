// Package simulation implements the Kikuchi pattern simulation core: the
// frame transform chain from crystal to detector space, visibility filtering
// of diffraction bands and zone axes over batches of orientations, the
// geometrical simulation result with its coordinate and overlay queries, and
// the kinematical master pattern kernel.
package simulation

import "fmt"

// Hemisphere selects which diffraction hemisphere(s) a master pattern covers.
type Hemisphere int

const (
	HemisphereUpper Hemisphere = iota
	HemisphereLower
	HemisphereBoth
)

// ParseHemisphere resolves a hemisphere name. Valid options are "upper",
// "lower" and "both".
func ParseHemisphere(s string) (Hemisphere, error) {
	switch s {
	case "upper":
		return HemisphereUpper, nil
	case "lower":
		return HemisphereLower, nil
	case "both":
		return HemisphereBoth, nil
	default:
		return 0, fmt.Errorf("unknown hemisphere %q, options are 'upper', 'lower' or 'both'", s)
	}
}

func (h Hemisphere) String() string {
	switch h {
	case HemisphereUpper:
		return "upper"
	case HemisphereLower:
		return "lower"
	case HemisphereBoth:
		return "both"
	default:
		return fmt.Sprintf("Hemisphere(%d)", int(h))
	}
}

// Poles returns the stereographic projection pole(s) of the hemisphere(s):
// -1 projects the upper and +1 the lower hemisphere.
func (h Hemisphere) Poles() []float64 {
	switch h {
	case HemisphereLower:
		return []float64{1}
	case HemisphereBoth:
		return []float64{-1, 1}
	default:
		return []float64{-1}
	}
}

// Scaling selects how per-reflector band intensities derive from structure
// factors.
type Scaling int

const (
	// ScalingLinear uses |F|.
	ScalingLinear Scaling = iota
	// ScalingSquare uses |F|².
	ScalingSquare
	// ScalingNone gives every band an intensity of 1.
	ScalingNone
)

// ParseScaling resolves a scaling name. Valid options are "linear", "square"
// and "none".
func ParseScaling(s string) (Scaling, error) {
	switch s {
	case "linear":
		return ScalingLinear, nil
	case "square":
		return ScalingSquare, nil
	case "none", "":
		return ScalingNone, nil
	default:
		return 0, fmt.Errorf("unknown scaling %q, options are 'linear', 'square' or 'none'", s)
	}
}

func (s Scaling) String() string {
	switch s {
	case ScalingLinear:
		return "linear"
	case ScalingSquare:
		return "square"
	case ScalingNone:
		return "none"
	default:
		return fmt.Sprintf("Scaling(%d)", int(s))
	}
}

// CoordinateSpace selects the coordinate system of reported detector
// coordinates.
type CoordinateSpace int

const (
	// CoordinatesPixel reports detector pixel coordinates with y growing
	// downwards from the top-left pixel.
	CoordinatesPixel CoordinateSpace = iota
	// CoordinatesGnomonic reports raw gnomonic coordinates with y up and
	// the projection center at the origin.
	CoordinatesGnomonic
)

// ParseCoordinateSpace resolves a coordinate space name. Valid options are
// "pixel" and "gnomonic".
func ParseCoordinateSpace(s string) (CoordinateSpace, error) {
	switch s {
	case "pixel", "":
		return CoordinatesPixel, nil
	case "gnomonic":
		return CoordinatesGnomonic, nil
	default:
		return 0, fmt.Errorf("unknown coordinates %q, options are 'pixel' or 'gnomonic'", s)
	}
}

func (c CoordinateSpace) String() string {
	switch c {
	case CoordinatesPixel:
		return "pixel"
	case CoordinatesGnomonic:
		return "gnomonic"
	default:
		return fmt.Sprintf("CoordinateSpace(%d)", int(c))
	}
}
