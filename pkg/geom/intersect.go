package geom

// Crossing records two non-adjacent loop edges that touch or cross.
type Crossing struct {
	I, J int // starting vertices of the two edges, I < J
	At   Point
}

// SelfIntersections returns every pair of non-adjacent edges that
// intersect. A simple loop returns nil. The scan is quadratic, which is
// fine at airfoil sampling densities.
func SelfIntersections(l *Loop) []Crossing {
	n := l.Len()
	var out []Crossing
	for i := 0; i < n; i++ {
		a, b := l.At(i), l.At(i+1)
		for j := i + 2; j < n; j++ {
			// Edge n-1 shares vertex 0 with edge 0.
			if i == 0 && j == n-1 {
				continue
			}
			c, d := l.At(j), l.At(j+1)
			if at, ok := segmentIntersection(a, b, c, d); ok {
				out = append(out, Crossing{I: i, J: j, At: at})
			}
		}
	}
	return out
}

// segmentIntersection reports whether closed segments ab and cd share a
// point, returning one such point.
func segmentIntersection(a, b, c, d Point) (Point, bool) {
	r := b.Sub(a)
	s := d.Sub(c)
	den := cross(r, s)
	qp := c.Sub(a)
	if den == 0 {
		if cross(qp, r) != 0 {
			return Point{}, false // parallel, not collinear
		}
		// Collinear: overlap test on the projection onto r.
		rr := r.Dot(r)
		if rr == 0 {
			if c.Sub(a).Length() == 0 || d.Sub(a).Length() == 0 {
				return a, true
			}
			return Point{}, false
		}
		t0 := qp.Dot(r) / rr
		t1 := t0 + s.Dot(r)/rr
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t1 < 0 || t0 > 1 {
			return Point{}, false
		}
		t := t0
		if t < 0 {
			t = 0
		}
		return a.Add(r.MulScalar(t)), true
	}
	t := cross(qp, s) / den
	u := cross(qp, r) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return a.Add(r.MulScalar(t)), true
}
