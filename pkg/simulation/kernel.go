package simulation

import (
	"math"
	"sync"
	"sync/atomic"
)

// bandEdgeTol is the tolerance of the orthogonality test in the kernel. A
// grid direction within this tolerance of the reflector's great circle sits
// exactly on the band edge and contributes half the band intensity instead
// of evaluating an angle that is numerically undefined there.
const bandEdgeTol = 1e-7

// kernelChunk is the number of grid points one worker claims at a time.
const kernelChunk = 4096

// accumulatePattern runs the pixel × reflector double loop of the
// kinematical kernel: every grid direction receives the intensity of each
// reflector whose Kikuchi band of half-width theta covers it, i.e. whose
// angle to the grid direction lies in [π/2 − theta, π/2].
//
// Both direction arrays are packed x,y,z with stride 3 and must be unit
// vectors. Work is partitioned over grid points with a private accumulator
// per point, so the result is deterministic for any worker count.
func accumulatePattern(intensity, refDirs, theta, gridDirs []float64, workers int, progress ProgressCallback) []float64 {
	nRef := len(intensity)
	nGrid := len(gridDirs) / 3
	pattern := make([]float64, nGrid)

	theta1 := make([]float64, nRef)
	for i := range theta1 {
		theta1[i] = 0.5*math.Pi - theta[i]
	}

	if workers < 1 {
		workers = 1
	}

	var next int64
	var done int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				start := int(atomic.AddInt64(&next, kernelChunk)) - kernelChunk
				if start >= nGrid {
					return
				}
				end := start + kernelChunk
				if end > nGrid {
					end = nGrid
				}
				for j := start; j < end; j++ {
					gx, gy, gz := gridDirs[3*j], gridDirs[3*j+1], gridDirs[3*j+2]
					acc := 0.0
					for i := 0; i < nRef; i++ {
						d := refDirs[3*i]*gx + refDirs[3*i+1]*gy + refDirs[3*i+2]*gz
						if math.Abs(d) <= bandEdgeTol {
							acc += 0.5 * intensity[i]
							continue
						}
						if d > 1 {
							d = 1
						} else if d < -1 {
							d = -1
						}
						angle := math.Acos(d)
						if angle <= 0.5*math.Pi && angle >= theta1[i] {
							acc += intensity[i]
						}
					}
					pattern[j] = acc
				}
				if progress != nil {
					progress(int(atomic.AddInt64(&done, int64(end-start))), nGrid, "")
				}
			}
		}()
	}
	wg.Wait()
	return pattern
}

// inverseStereographicGrid builds the unit directions of a square master
// pattern grid of side 2·halfSize+1 by inverse stereographic projection of
// the regular planar grid spanning [-1, 1]². The pole is -1 for the upper
// and +1 for the lower hemisphere. Directions are packed x,y,z with stride
// 3, row-major with x varying fastest.
func inverseStereographicGrid(halfSize int, pole float64) []float64 {
	size := 2*halfSize + 1
	coords := make([]float64, size)
	for i := range coords {
		coords[i] = -1 + 2*float64(i)/float64(size-1)
	}
	dirs := make([]float64, 3*size*size)
	for row := 0; row < size; row++ {
		y := coords[row]
		for col := 0; col < size; col++ {
			x := coords[col]
			r2 := x*x + y*y
			denom := 1 + r2
			k := 3 * (row*size + col)
			dirs[k] = 2 * x / denom
			dirs[k+1] = 2 * y / denom
			dirs[k+2] = -pole * (1 - r2) / denom
		}
	}
	return dirs
}
