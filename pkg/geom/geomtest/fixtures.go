// Package geomtest provides synthetic airfoil loops for tests.
package geomtest

import (
	"math"

	"github.com/chazu/foil/pkg/geom"
)

// NACA4 describes a NACA 4-digit section: camber and thickness as a
// fraction of chord, camber position as a fraction of chord.
type NACA4 struct {
	Camber    float64 // m, e.g. 0.02
	CamberPos float64 // p, e.g. 0.4
	Thickness float64 // t, e.g. 0.12
	Half      int     // samples per surface
	BluntTE   bool    // use the classic open trailing edge coefficient
}

// Symmetric returns a closed-TE NACA 00tt definition with 2*half points.
func Symmetric(thickness float64, half int) NACA4 {
	return NACA4{Thickness: thickness, Half: half}
}

// Points returns the section as a CCW point list starting at the trailing
// edge: upper surface from TE to LE, then lower surface from LE back to TE.
// Cosine spacing clusters samples at both edges; the LE sample (x=0) is
// always present.
func (n NACA4) Points() []geom.Point {
	m := n.Half
	a4 := -0.1036
	if n.BluntTE {
		a4 = -0.1015
	}
	xs := make([]float64, m+1)
	for k := range xs {
		xs[k] = 0.5 * (1 - math.Cos(math.Pi*float64(k)/float64(m)))
	}
	upper := make([]geom.Point, m+1)
	lower := make([]geom.Point, m+1)
	for k, x := range xs {
		yt := 5 * n.Thickness * (0.2969*math.Sqrt(x) - 0.1260*x - 0.3516*x*x + 0.2843*x*x*x + a4*x*x*x*x)
		yc, dyc := n.camber(x)
		th := math.Atan(dyc)
		upper[k] = geom.Point{X: x - yt*math.Sin(th), Y: yc + yt*math.Cos(th)}
		lower[k] = geom.Point{X: x + yt*math.Sin(th), Y: yc - yt*math.Cos(th)}
	}
	pts := make([]geom.Point, 0, 2*m+1)
	for k := m; k >= 0; k-- {
		pts = append(pts, upper[k])
	}
	last := m - 1
	if n.BluntTE {
		last = m
	}
	for k := 1; k <= last; k++ {
		pts = append(pts, lower[k])
	}
	return pts
}

// Loop returns Points as a geom.Loop.
func (n NACA4) Loop() *geom.Loop {
	return geom.MustLoop(n.Points()...)
}

func (n NACA4) camber(x float64) (yc, slope float64) {
	m, p := n.Camber, n.CamberPos
	if m == 0 || p == 0 {
		return 0, 0
	}
	if x < p {
		return m / (p * p) * (2*p*x - x*x), 2 * m / (p * p) * (p - x)
	}
	return m / ((1 - p) * (1 - p)) * ((1 - 2*p) + 2*p*x - x*x), 2 * m / ((1 - p) * (1 - p)) * (p - x)
}

// Ellipse returns n CCW points on an ellipse centred at (cx, 0) with
// semi-axes a and b, starting at the +x vertex.
func Ellipse(cx, a, b float64, n int) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		th := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.Point{X: cx + a*math.Cos(th), Y: b * math.Sin(th)}
	}
	return pts
}

// Reverse returns pts in reverse order.
func Reverse(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// Rotate returns pts started at index k.
func Rotate(pts []geom.Point, k int) []geom.Point {
	n := len(pts)
	out := make([]geom.Point, n)
	for i := range out {
		out[i] = pts[((k+i)%n+n)%n]
	}
	return out
}

// UnitSquareCW is the clockwise unit square (0,0),(0,1),(1,1),(1,0).
func UnitSquareCW() []geom.Point {
	return []geom.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}}
}
