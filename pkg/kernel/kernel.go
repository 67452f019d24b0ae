// Package kernel defines the 2D region kernel used to sample distance
// fields around an airfoil section. Implementations represent regions as
// signed distance functions: negative inside, positive outside.
package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/foil/pkg/geom"
)

// Region is an opaque handle to a planar region.
type Region interface {
	Bounds() sdf.Box2
	// Distance is the signed distance from p to the region boundary.
	Distance(p geom.Point) float64
}

// Kernel builds and combines regions.
type Kernel interface {
	// Section returns the region enclosed by a closed loop.
	Section(l *geom.Loop) (Region, error)
	// Rect returns an axis-aligned rectangle.
	Rect(b sdf.Box2) (Region, error)

	Union(a, b Region) Region
	// Difference returns a minus b.
	Difference(a, b Region) Region
	Translate(r Region, d geom.Point) Region

	// Sample evaluates r at the centers of an nx by ny grid over b.
	Sample(r Region, b sdf.Box2, nx, ny int) (*Field, error)
}

// Field is a scalar grid. Values are row-major from the lower left:
// Values[j*NX+i] is the cell in column i and row j.
type Field struct {
	Name   string    `json:"name"`
	Bounds sdf.Box2  `json:"bounds"`
	NX     int       `json:"nx"`
	NY     int       `json:"ny"`
	Values []float32 `json:"values"`
}

// Len returns the number of cells.
func (f *Field) Len() int { return len(f.Values) }

// IsEmpty reports whether the field has no cells.
func (f *Field) IsEmpty() bool { return len(f.Values) == 0 }

// At returns the value in column i, row j.
func (f *Field) At(i, j int) float32 { return f.Values[j*f.NX+i] }

// Center returns the coordinates of the cell center in column i, row j.
func (f *Field) Center(i, j int) geom.Point {
	dx := (f.Bounds.Max.X - f.Bounds.Min.X) / float64(f.NX)
	dy := (f.Bounds.Max.Y - f.Bounds.Min.Y) / float64(f.NY)
	return geom.Point{
		X: f.Bounds.Min.X + (float64(i)+0.5)*dx,
		Y: f.Bounds.Min.Y + (float64(j)+0.5)*dy,
	}
}

// Range returns the smallest and largest values.
func (f *Field) Range() (lo, hi float32) {
	if f.IsEmpty() {
		return 0, 0
	}
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range f.Values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Count returns how many cells satisfy keep.
func (f *Field) Count(keep func(v float32) bool) int {
	n := 0
	for _, v := range f.Values {
		if keep(v) {
			n++
		}
	}
	return n
}
