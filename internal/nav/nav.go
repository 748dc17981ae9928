// Package nav provides navigation-shape bookkeeping for batched EBSD
// computations. A navigation shape describes how patterns are laid out in a
// map: a single pattern, a line scan, or a two-dimensional scan grid.
package nav

import "fmt"

// MaxDimensions is the highest navigation rank supported. Orientation maps
// are at most two-dimensional scan grids.
const MaxDimensions = 2

// Shape is the navigation shape of a batch of patterns. The zero-rank case
// (a single pattern) is normalized to (1,) so every batch has at least one
// position.
type Shape []int

// NewShape validates dims and returns them as a Shape. An empty dims is
// normalized to (1,).
func NewShape(dims ...int) (Shape, error) {
	if len(dims) == 0 {
		return Shape{1}, nil
	}
	if len(dims) > MaxDimensions {
		return nil, fmt.Errorf("navigation shape %v has %d dimensions, at most %d are supported",
			dims, len(dims), MaxDimensions)
	}
	for _, d := range dims {
		if d < 1 {
			return nil, fmt.Errorf("navigation shape %v has non-positive dimension %d", dims, d)
		}
	}
	s := make(Shape, len(dims))
	copy(s, dims)
	return s, nil
}

// MustShape is NewShape for shapes known to be valid, such as literals in
// tests and defaults.
func MustShape(dims ...int) Shape {
	s, err := NewShape(dims...)
	if err != nil {
		panic(err)
	}
	return s
}

// Size returns the total number of navigation positions.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether two shapes have identical rank and dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// IsScalar reports whether the shape holds exactly one position overall.
func (s Shape) IsScalar() bool {
	return s.Size() == 1
}

// FlatIndex converts a multi-dimensional index to a flat row-major index.
// The index must have the same rank as the shape and be within bounds.
func (s Shape) FlatIndex(index ...int) (int, error) {
	if len(index) != len(s) {
		return 0, fmt.Errorf("index %v has rank %d, navigation shape %v has rank %d",
			index, len(index), []int(s), len(s))
	}
	flat := 0
	for i, idx := range index {
		if idx < 0 || idx >= s[i] {
			return 0, fmt.Errorf("index %v out of bounds for navigation shape %v", index, []int(s))
		}
		flat = flat*s[i] + idx
	}
	return flat, nil
}

// MultiIndex converts a flat row-major index back to a multi-dimensional one.
func (s Shape) MultiIndex(flat int) ([]int, error) {
	if flat < 0 || flat >= s.Size() {
		return nil, fmt.Errorf("flat index %d out of bounds for navigation shape %v of size %d",
			flat, []int(s), s.Size())
	}
	index := make([]int, len(s))
	for i := len(s) - 1; i >= 0; i-- {
		index[i] = flat % s[i]
		flat /= s[i]
	}
	return index, nil
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

// String formats the shape like a tuple, e.g. "(2, 3)".
func (s Shape) String() string {
	switch len(s) {
	case 1:
		return fmt.Sprintf("(%d,)", s[0])
	case 2:
		return fmt.Sprintf("(%d, %d)", s[0], s[1])
	default:
		return fmt.Sprintf("%v", []int(s))
	}
}
