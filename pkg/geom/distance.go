package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Projection is the nearest point on a polyline to a query point.
type Projection struct {
	Point    Point   // closest point on the polyline
	Segment  int     // index of the segment's starting vertex
	T        float64 // parameter along the segment in [0, 1]
	Distance float64 // Euclidean distance from the query point
}

// NearestPoint projects q onto the closed loop.
func NearestPoint(l *Loop, q Point) Projection {
	best := Projection{Distance: math.Inf(1)}
	for i := 0; i < l.Len(); i++ {
		p, t := projectSegment(l.At(i), l.At(i+1), q)
		if d := q.Sub(p).Length(); d < best.Distance {
			best = Projection{Point: p, Segment: i, T: t, Distance: d}
		}
	}
	return best
}

// NearestOnPolyline projects q onto an open polyline. A single point is
// treated as a degenerate segment.
func NearestOnPolyline(pts []Point, q Point) Projection {
	best := Projection{Distance: math.Inf(1)}
	if len(pts) == 1 {
		return Projection{Point: pts[0], Distance: q.Sub(pts[0]).Length()}
	}
	for i := 0; i+1 < len(pts); i++ {
		p, t := projectSegment(pts[i], pts[i+1], q)
		if d := q.Sub(p).Length(); d < best.Distance {
			best = Projection{Point: p, Segment: i, T: t, Distance: d}
		}
	}
	return best
}

// DistanceToPolyline returns the perpendicular (or endpoint) distance from
// q to the open polyline pts. An empty polyline is infinitely far away.
func DistanceToPolyline(pts []Point, q Point) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return q.Sub(pts[0]).Length()
	}
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = ToOrb(p)
	}
	return planar.DistanceFrom(ls, ToOrb(q))
}

// DistanceToSegment returns the distance from q to segment ab.
func DistanceToSegment(a, b, q Point) float64 {
	return planar.DistanceFromSegment(ToOrb(a), ToOrb(b), ToOrb(q))
}

// projectSegment returns the closest point on ab to q and its parameter.
func projectSegment(a, b, q Point) (Point, float64) {
	ab := b.Sub(a)
	den := ab.Dot(ab)
	if den == 0 {
		return a, 0
	}
	t := q.Sub(a).Dot(ab) / den
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.MulScalar(t)), t
}
