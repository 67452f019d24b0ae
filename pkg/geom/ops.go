package geom

import (
	"math"

	"github.com/paulmach/orb/planar"
)

// Orientation is the winding direction of a loop.
type Orientation int

const (
	Degenerate Orientation = iota
	CCW
	CW
)

func (o Orientation) String() string {
	switch o {
	case CCW:
		return "ccw"
	case CW:
		return "cw"
	}
	return "degenerate"
}

// SignedArea returns the shoelace area of the loop: positive for CCW.
func SignedArea(l *Loop) float64 {
	_, a := planar.CentroidArea(l.Ring())
	return a
}

// Centroid returns the area centroid of the loop.
func Centroid(l *Loop) Point {
	c, _ := planar.CentroidArea(l.Ring())
	return FromOrb(c)
}

// OrientationOf classifies a signed area; |area| <= tol is Degenerate.
func OrientationOf(area, tol float64) Orientation {
	switch {
	case area > tol:
		return CCW
	case area < -tol:
		return CW
	}
	return Degenerate
}

// Perimeter returns the total length of the closed loop.
func Perimeter(l *Loop) float64 {
	s := Arclength(l)
	return s[len(s)-1]
}

// Arclength returns the cumulative distance along the loop from vertex 0.
// The result has Len()+1 entries: s[i] is the position of vertex i and the
// final entry is the perimeter (vertex 0 reached again).
func Arclength(l *Loop) []float64 {
	n := l.Len()
	s := make([]float64, n+1)
	for i := 1; i <= n; i++ {
		s[i] = s[i-1] + l.At(i).Sub(l.At(i-1)).Length()
	}
	return s
}

// AlongLoopDistance returns the shorter of the two walks between vertices
// i and j, given the arclength table produced by Arclength.
func AlongLoopDistance(s []float64, i, j int) float64 {
	total := s[len(s)-1]
	d := math.Abs(s[i] - s[j])
	return math.Min(d, total-d)
}

// SegmentLengths returns the length of every edge, indexed by its starting
// vertex.
func SegmentLengths(l *Loop) []float64 {
	out := make([]float64, l.Len())
	for i := range out {
		out[i] = l.At(i + 1).Sub(l.At(i)).Length()
	}
	return out
}

func cross(a, b Point) float64 { return a.X*b.Y - a.Y*b.X }
