package simulation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"kikusim/pkg/detector"
)

// upperHemisphereFromZ returns per-position in-pattern flags from
// precomputed detector-frame z components: a trace is in a pattern when its
// pole lies strictly in the upper hemisphere there.
func upperHemisphereFromZ(z [][]float64) [][]bool {
	out := make([][]bool, len(z))
	for p, zp := range z {
		flags := make([]bool, len(zp))
		for i, v := range zp {
			flags[i] = v > 0
		}
		out[p] = flags
	}
	return out
}

// upperHemisphere returns per-position in-pattern flags from full
// detector-frame coordinates.
func upperHemisphere(coords []*mat.Dense) [][]bool {
	out := make([][]bool, len(coords))
	for p, c := range coords {
		n, _ := c.Dims()
		flags := make([]bool, n)
		for i := 0; i < n; i++ {
			flags[i] = c.At(i, 2) > 0
		}
		out[p] = flags
	}
	return out
}

// anyPosition reduces per-position flags to a single per-vector flag that is
// true when the vector appears in at least one pattern of the batch.
func anyPosition(flags [][]bool) []bool {
	if len(flags) == 0 {
		return nil
	}
	out := make([]bool, len(flags[0]))
	for _, fp := range flags {
		for i, f := range fp {
			if f {
				out[i] = true
			}
		}
	}
	return out
}

// withinGnomonicBounds tests per position whether each vector's gnomonic
// projection falls inside the detector's sensing area, with the bounds grown
// by one pixel step in x and y so features exactly on the border survive.
// The detector index is held at 0 when a single detector serves the whole
// batch.
func withinGnomonicBounds(coords []*mat.Dense, det *detector.Detector) [][]bool {
	scalarDet := det.NavSize() == 1
	out := make([][]bool, len(coords))
	for p, c := range coords {
		di := p
		if scalarDet {
			di = 0
		}
		xr := det.XRange(di)
		yr := det.YRange(di)
		xs := det.XScale(di)
		ys := det.YScale(di)
		xr[0] -= xs
		xr[1] += xs
		yr[0] -= ys
		yr[1] += ys

		n, _ := c.Dims()
		flags := make([]bool, n)
		for i := 0; i < n; i++ {
			z := c.At(i, 2)
			if math.Abs(z) < zeroTol {
				continue
			}
			xg := c.At(i, 0) / z
			yg := c.At(i, 1) / z
			flags[i] = xg >= xr[0] && xg <= xr[1] && yg >= yr[0] && yg <= yr[1]
		}
		out[p] = flags
	}
	return out
}

// combineAll ANDs two per-vector flag slices.
func combineAll(a, b []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] && b[i]
	}
	return out
}

// selectColumns keeps, per position, only the flags of the vectors where
// keep is true.
func selectColumns(flags [][]bool, keep []bool) [][]bool {
	out := make([][]bool, len(flags))
	for p, fp := range flags {
		var kept []bool
		for i, k := range keep {
			if k {
				kept = append(kept, fp[i])
			}
		}
		out[p] = kept
	}
	return out
}

// selectRows keeps only the matrix rows where keep is true, per position.
// With nothing kept the positions become nil matrices.
func selectRows(coords []*mat.Dense, keep []bool) []*mat.Dense {
	nKeep := 0
	for _, k := range keep {
		if k {
			nKeep++
		}
	}
	out := make([]*mat.Dense, len(coords))
	if nKeep == 0 {
		return out
	}
	for p, c := range coords {
		sel := mat.NewDense(nKeep, 3, nil)
		row := 0
		for i, k := range keep {
			if k {
				sel.SetRow(row, []float64{c.At(i, 0), c.At(i, 1), c.At(i, 2)})
				row++
			}
		}
		out[p] = sel
	}
	return out
}
