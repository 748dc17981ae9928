package simulation

import (
	"fmt"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"kikusim/internal/nav"
	"kikusim/pkg/crystal"
	"kikusim/pkg/detector"
	"kikusim/pkg/rotation"
)

// ProgressCallback reports progress of long-running computations to an
// external sink. It must not influence results.
type ProgressCallback func(completed, total int, message string)

// Simulator sets up and runs geometrical and kinematical Kikuchi pattern
// simulations for one set of reflectors. The reflector set is deep-copied on
// construction, so later mutation of the caller's set never affects the
// simulator.
type Simulator struct {
	reflectors *crystal.ReflectorSet
	workers    int
	progress   ProgressCallback
}

// NewSimulator creates a simulator over a copy of the given reflectors.
func NewSimulator(reflectors *crystal.ReflectorSet) (*Simulator, error) {
	if reflectors == nil || reflectors.Len() == 0 {
		return nil, fmt.Errorf("simulator requires a non-empty reflector set")
	}
	return &Simulator{
		reflectors: reflectors.Clone(),
		workers:    runtime.NumCPU(),
	}, nil
}

// Reflectors returns a copy of the simulator's reflectors.
func (s *Simulator) Reflectors() *crystal.ReflectorSet {
	return s.reflectors.Clone()
}

// Phase returns a copy of the phase all reflectors belong to.
func (s *Simulator) Phase() *crystal.Phase {
	return s.reflectors.Phase.Clone()
}

// SetWorkers sets the number of goroutines used by the master pattern
// kernel. Values below 1 restore the default of all available CPUs.
func (s *Simulator) SetWorkers(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	s.workers = n
}

// SetProgressCallback installs a progress sink for long computations.
func (s *Simulator) SetProgressCallback(cb ProgressCallback) {
	s.progress = cb
}

// String gives a one-line description of the simulator.
func (s *Simulator) String() string {
	return fmt.Sprintf("Simulator: %d reflectors, %s", s.reflectors.Len(), s.reflectors.Phase)
}

// OnDetector projects Kikuchi lines and zone axes onto a detector, one
// pattern per crystal orientation.
//
// The detector's navigation shape must be (1,), applying one geometry to all
// orientations, or exactly equal to the orientation batch shape for a
// per-position projection center. Reflectors whose trace never reaches the
// upper hemisphere in any pattern are dropped before any detector coordinate
// is computed; zone axes are derived from the survivors' pairwise cross
// products and additionally gated by the detector's (slightly expanded)
// gnomonic bounds.
func (s *Simulator) OnDetector(det *detector.Detector, rotations *rotation.Batch) (*GeometricalSimulation, error) {
	if det == nil || rotations == nil {
		return nil, fmt.Errorf("on detector requires a detector and an orientation batch")
	}
	detShape := det.NavigationShape()
	rotShape := rotations.Shape()
	if !detShape.Equal(nav.MustShape(1)) && !detShape.Equal(rotShape) {
		return nil, fmt.Errorf(
			"detector navigation shape %v must be (1,) or equal to the orientation batch shape %v",
			detShape, rotShape)
	}

	lattice := s.reflectors.Phase.Lattice
	uS := detectorFrameMatrix(det)
	uOS := crystalDetectorMatrices(rotations, uS)

	// Cheap existence test on z only: find reflectors in some pattern.
	hkl := s.reflectors.HKLMatrix()
	zHkl := detectorZComponents(hkl, lattice.RecBase(), uOS)
	hklUpperAll := upperHemisphereFromZ(zHkl)
	hklInSome := anyPosition(hklUpperAll)

	visible, err := s.reflectors.Select(hklInSome)
	if err != nil {
		return nil, err
	}
	if visible.Len() == 0 {
		return nil, fmt.Errorf("no reflector is in any pattern for the given orientations")
	}

	// Full detector coordinates, survivors only.
	hklDet := transformRows(visible.HKLMatrix(), lattice.RecBase(), uOS)
	hklUpper := upperHemisphere(hklDet)

	// Zone axes from the survivors.
	axes, err := visible.ZoneAxes()
	if err != nil {
		return nil, fmt.Errorf("deriving zone axes: %w", err)
	}
	var visibleAxes []crystal.ZoneAxis
	uvwDet := make([]*mat.Dense, len(uOS))
	uvwUpper := make([][]bool, len(uOS))
	if len(axes) > 0 {
		uvw := zoneAxisMatrix(axes)
		uvwDet = transformRows(uvw, lattice.Base(), uOS)
		uvwUpper = upperHemisphere(uvwDet)
		uvwInSome := anyPosition(uvwUpper)
		uvwWithin := anyPosition(withinGnomonicBounds(uvwDet, det))
		uvwKeep := combineAll(uvwInSome, uvwWithin)

		for i, k := range uvwKeep {
			if k {
				visibleAxes = append(visibleAxes, axes[i])
			}
		}
		uvwDet = selectRows(uvwDet, uvwKeep)
		uvwUpper = selectColumns(uvwUpper, uvwKeep)
	}

	maxR := det.MaxGnomonicRadius()
	lines := newLineFeatures(hklDet, hklUpper, maxR)
	zoneAxes := newZoneAxisFeatures(uvwDet, uvwUpper, maxR)

	return newGeometricalSimulation(det, rotations, visible, visibleAxes, lines, zoneAxes, maxR), nil
}
