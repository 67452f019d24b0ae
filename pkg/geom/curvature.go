package geom

import "math"

// DefaultCurvatureWindow uses the immediate neighbours i-1, i, i+1.
const DefaultCurvatureWindow = 3

// Curvature estimates the signed curvature at vertex i from the circle
// through vertices i-h, i and i+h, where h = window/2. The sign is positive
// where the loop turns left, which on a CCW loop means convex outward.
// Collinear or coincident samples give zero.
func Curvature(l *Loop, i, window int) float64 {
	h := halfWindow(window)
	return menger(l.At(i-h), l.At(i), l.At(i+h))
}

// CurvatureAll returns Curvature for every vertex.
func CurvatureAll(l *Loop, window int) []float64 {
	out := make([]float64, l.Len())
	for i := range out {
		out[i] = Curvature(l, i, window)
	}
	return out
}

// menger is the signed Menger curvature 4*area(abc) / (|ab||bc||ca|).
func menger(a, b, c Point) float64 {
	ab := b.Sub(a)
	bc := c.Sub(b)
	ca := a.Sub(c)
	den := ab.Length() * bc.Length() * ca.Length()
	if den == 0 {
		return 0
	}
	return 2 * cross(ab, bc) / den
}

// SmoothCircular applies a centred moving average of the given odd width
// to a value per loop vertex, wrapping around the loop. Widths below 3
// return a copy.
func SmoothCircular(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	n := len(vals)
	h := window / 2
	if window < 3 || n == 0 {
		copy(out, vals)
		return out
	}
	if 2*h+1 > n {
		h = (n - 1) / 2
	}
	for i := range vals {
		sum := 0.0
		for k := -h; k <= h; k++ {
			sum += vals[((i+k)%n+n)%n]
		}
		out[i] = sum / float64(2*h+1)
	}
	return out
}

// Tangent returns the unit central-difference tangent at vertex i.
// Coincident neighbours yield the zero vector.
func Tangent(l *Loop, i int) Point {
	return unit(l.At(i + 1).Sub(l.At(i - 1)))
}

// Normal returns the unit normal at vertex i, rotated clockwise from the
// tangent. On a CCW loop it points outward.
func Normal(l *Loop, i int) Point {
	t := Tangent(l, i)
	return Point{X: t.Y, Y: -t.X}
}

// TurnAngle returns the signed exterior angle at vertex i in radians,
// in (-pi, pi]. Left turns are positive.
func TurnAngle(l *Loop, i int) float64 {
	a := l.At(i).Sub(l.At(i - 1))
	b := l.At(i + 1).Sub(l.At(i))
	return math.Atan2(cross(a, b), a.Dot(b))
}

func unit(v Point) Point {
	n := v.Length()
	if n == 0 {
		return Point{}
	}
	return v.DivScalar(n)
}

// halfWindow converts an odd window width into the neighbour offset,
// rounding even widths down.
func halfWindow(window int) int {
	if window < 3 {
		return 1
	}
	return window / 2
}
