// Package tensor describes the shape of row-major float32 buffers.
package tensor

import "fmt"

// Size is the extent of a three dimensional buffer.
// Layout is [Depth][Height][Width], row-major, so the element at (d, i, j)
// lives at (d*Height+i)*Width+j.
type Size struct {
	Depth  int
	Height int
	Width  int
}

// Len returns the number of elements covered by the shape.
func (s Size) Len() int {
	return s.Depth * s.Height * s.Width
}

// Plane returns the number of elements in one Height x Width slice.
func (s Size) Plane() int {
	return s.Height * s.Width
}

// Index returns the flat offset of (d, i, j).
func (s Size) Index(d, i, j int) int {
	return (d*s.Height+i)*s.Width + j
}

// Check panics if buf does not hold exactly s.Len() elements.
func (s Size) Check(name string, buf []float32) {
	if len(buf) != s.Len() {
		panic(fmt.Sprintf("tensor: %s has %d elements, shape %v needs %d", name, len(buf), s, s.Len()))
	}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Depth, s.Height, s.Width)
}
