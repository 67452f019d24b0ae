package topology

import (
	"math"

	"github.com/chazu/foil/pkg/geom"
)

// Range is an inclusive, circular run of loop indices walked forward from
// Start to End.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
	N     int `json:"-"` // loop length
}

// Len returns the number of vertices in the range.
func (r Range) Len() int {
	return ((r.End-r.Start)%r.N+r.N)%r.N + 1
}

// Indices returns the vertex indices in walk order.
func (r Range) Indices() []int {
	out := make([]int, r.Len())
	for k := range out {
		out[k] = (r.Start + k) % r.N
	}
	return out
}

// Contains reports whether vertex i lies on the range.
func (r Range) Contains(i int) bool {
	off := ((i-r.Start)%r.N + r.N) % r.N
	return off < r.Len()
}

// Points returns the range's vertices in walk order.
func (r Range) Points(l *geom.Loop) []geom.Point {
	idx := r.Indices()
	out := make([]geom.Point, len(idx))
	for k, i := range idx {
		out[k] = l.At(i)
	}
	return out
}

// SideSplit partitions a loop into its two LE-TE walks. Both ranges include
// the LE and TE vertices.
type SideSplit struct {
	Suction  Range `json:"suction"`
	Pressure Range `json:"pressure"`
}

// Side identifies a surface.
type Side int

const (
	Pressure Side = iota
	Suction
)

func (s Side) String() string {
	if s == Suction {
		return "suction"
	}
	return "pressure"
}

// SideOf returns the side vertex i lies on. LE and TE are shared; they are
// reported as suction.
func (s SideSplit) SideOf(i int) Side {
	if s.Suction.Contains(i) {
		return Suction
	}
	return Pressure
}

// Split divides a CCW loop at the given LE and TE. The walk whose interior
// vertices sit higher in the chord frame (LE at the origin, TE on +x) is
// the suction side. When neither walk is higher, the walk from TE to LE is
// taken as suction, which is the upper surface of a CCW loop whose LE lies
// left of its TE.
func Split(l *geom.Loop, lete LETE) (SideSplit, error) {
	n := l.Len()
	if lete.LE == lete.TE {
		return SideSplit{}, &AmbiguousLETEError{Role: "LE", Reason: "leading and trailing edge coincide", Indices: []int{lete.LE}}
	}
	leToTE := Range{Start: lete.LE, End: lete.TE, N: n}
	teToLE := Range{Start: lete.TE, End: lete.LE, N: n}

	f := NewFrame(l.At(lete.LE), l.At(lete.TE))
	a := meanLocalY(l, leToTE, f)
	b := meanLocalY(l, teToLE, f)

	eps := 1e-12 * math.Max(f.Length, 1)
	if a > b+eps {
		return SideSplit{Suction: leToTE, Pressure: teToLE}, nil
	}
	return SideSplit{Suction: teToLE, Pressure: leToTE}, nil
}

// meanLocalY averages the chord-frame y of a range's interior vertices.
func meanLocalY(l *geom.Loop, r Range, f Frame) float64 {
	idx := r.Indices()
	if len(idx) <= 2 {
		return 0
	}
	sum := 0.0
	for _, i := range idx[1 : len(idx)-1] {
		sum += f.ToLocal(l.At(i)).Y
	}
	return sum / float64(len(idx)-2)
}

// Frame is the chord-aligned coordinate frame: origin at the LE, x axis
// toward the TE, unit length preserved.
type Frame struct {
	Origin geom.Point
	U      geom.Point // unit chord direction
	Length float64
}

// NewFrame builds the chord frame from LE to TE. Coincident points give
// the identity orientation.
func NewFrame(le, te geom.Point) Frame {
	d := te.Sub(le)
	length := d.Length()
	u := geom.Point{X: 1}
	if length > 0 {
		u = d.DivScalar(length)
	}
	return Frame{Origin: le, U: u, Length: length}
}

// ToLocal maps a point into the chord frame.
func (f Frame) ToLocal(p geom.Point) geom.Point {
	d := p.Sub(f.Origin)
	return geom.Point{X: d.Dot(f.U), Y: f.U.X*d.Y - f.U.Y*d.X}
}

// ToGlobal maps a chord-frame point back.
func (f Frame) ToGlobal(p geom.Point) geom.Point {
	return geom.Point{
		X: f.Origin.X + p.X*f.U.X - p.Y*f.U.Y,
		Y: f.Origin.Y + p.X*f.U.Y + p.Y*f.U.X,
	}
}
