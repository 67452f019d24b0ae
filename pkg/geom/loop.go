package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/paulmach/orb"
)

// Point is a 2D coordinate. It shares the sdfx vector type so the vector
// algebra (Add, Sub, MulScalar, Dot, Length) comes for free.
type Point = v2.Vec

// MinPoints is the smallest number of distinct points a Loop may hold.
const MinPoints = 3

// Loop is an ordered, implicitly closed sequence of points: the last point
// connects back to the first. A Loop never changes after construction;
// transformations return a new Loop.
type Loop struct {
	pts []Point
}

// NewLoop copies pts into a new Loop. It fails with a DegenerateLoopError
// when fewer than MinPoints points are given or any coordinate is not
// finite. NewLoop does not deduplicate; that is the normalizer's job.
func NewLoop(pts []Point) (*Loop, error) {
	if len(pts) < MinPoints {
		return nil, tooFew(len(pts))
	}
	for i, p := range pts {
		if !IsFinite(p) {
			return nil, &DegenerateLoopError{Reason: "non-finite coordinate", Index: i}
		}
	}
	cp := make([]Point, len(pts))
	copy(cp, pts)
	return &Loop{pts: cp}, nil
}

// MustLoop is NewLoop for fixtures and tests; it panics on error.
func MustLoop(pts ...Point) *Loop {
	l, err := NewLoop(pts)
	if err != nil {
		panic(err)
	}
	return l
}

// IsFinite reports whether both coordinates are finite.
func IsFinite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Len returns the number of vertices.
func (l *Loop) Len() int { return len(l.pts) }

// Wrap maps any integer onto a valid vertex index.
func (l *Loop) Wrap(i int) int {
	n := len(l.pts)
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// At returns vertex i with circular indexing.
func (l *Loop) At(i int) Point { return l.pts[l.Wrap(i)] }

// Next returns the index following i.
func (l *Loop) Next(i int) int { return l.Wrap(i + 1) }

// Prev returns the index preceding i.
func (l *Loop) Prev(i int) int { return l.Wrap(i - 1) }

// Points returns a copy of the vertices.
func (l *Loop) Points() []Point {
	cp := make([]Point, len(l.pts))
	copy(cp, l.pts)
	return cp
}

// Bounds returns the axis-aligned bounding box.
func (l *Loop) Bounds() sdf.Box2 {
	return BoundsOf(l.pts)
}

// BoundsOf returns the bounding box of a point slice. An empty slice
// yields the zero box.
func BoundsOf(pts []Point) sdf.Box2 {
	if len(pts) == 0 {
		return sdf.Box2{}
	}
	b := sdf.Box2{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Diagonal returns the length of the bounding box diagonal.
func Diagonal(b sdf.Box2) float64 {
	return b.Max.Sub(b.Min).Length()
}

// Ring returns the loop as an explicitly closed orb ring.
func (l *Loop) Ring() orb.Ring {
	r := make(orb.Ring, 0, len(l.pts)+1)
	for _, p := range l.pts {
		r = append(r, ToOrb(p))
	}
	return append(r, r[0])
}

// LineString returns the vertices from index i to j walking forward,
// both inclusive, as an orb line string.
func (l *Loop) LineString(i, j int) orb.LineString {
	var ls orb.LineString
	for k := l.Wrap(i); ; k = l.Next(k) {
		ls = append(ls, ToOrb(l.pts[k]))
		if k == l.Wrap(j) {
			break
		}
	}
	return ls
}

// ToOrb converts a Point to an orb.Point.
func ToOrb(p Point) orb.Point { return orb.Point{p.X, p.Y} }

// FromOrb converts an orb.Point to a Point.
func FromOrb(p orb.Point) Point { return Point{X: p[0], Y: p[1]} }

// Reversed returns the loop walked in the opposite direction while keeping
// vertex 0 in place: out[i] = in[(n-i) mod n].
func (l *Loop) Reversed() *Loop {
	n := len(l.pts)
	out := make([]Point, n)
	for i := range out {
		out[i] = l.pts[(n-i)%n]
	}
	return &Loop{pts: out}
}

// Rotated returns the same loop started at vertex k.
func (l *Loop) Rotated(k int) *Loop {
	n := len(l.pts)
	out := make([]Point, n)
	for i := range out {
		out[i] = l.pts[l.Wrap(k+i)]
	}
	return &Loop{pts: out}
}

// Transform applies p' = (p - origin) * scale to every vertex.
func (l *Loop) Transform(origin Point, scale float64) *Loop {
	out := make([]Point, len(l.pts))
	for i, p := range l.pts {
		out[i] = p.Sub(origin).MulScalar(scale)
	}
	return &Loop{pts: out}
}

// Equal reports whether both loops hold the same vertices in the same
// order, each coordinate within tol.
func (l *Loop) Equal(o *Loop, tol float64) bool {
	if l.Len() != o.Len() {
		return false
	}
	for i := range l.pts {
		if math.Abs(l.pts[i].X-o.pts[i].X) > tol || math.Abs(l.pts[i].Y-o.pts[i].Y) > tol {
			return false
		}
	}
	return true
}
