package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/topology"
)

// Descriptor names.
const (
	ChordLength     = "chord_length"
	ArcLengthTotal  = "arc_length_total"
	Area            = "area"
	LERadius        = "LE_radius"
	TEThickness     = "TE_thickness"
	TEWedgeAngleDeg = "TE_wedge_angle_deg"
	ThicknessMax    = "thickness_max"
	XThicknessMax   = "x_thickness_max"
	CamberMax       = "camber_max"
	XCamberMax      = "x_camber_max"
)

// Options controls descriptor and per-vertex evaluation.
type Options struct {
	// CurvatureWindow is the odd stencil width for curvature estimates.
	CurvatureWindow int
	// SmoothingWindow is the odd moving-average width applied to
	// per-vertex curvature.
	SmoothingWindow int
	// LEFitWindow is the number of vertices on each side of the LE used by
	// the leading edge circle fit.
	LEFitWindow int
	// WedgeSpan is the number of vertices along each side used to measure
	// the trailing edge direction.
	WedgeSpan int
	// GridPoints is the number of chordwise stations for thickness and
	// camber.
	GridPoints int
	// TEEpsilon is the width of the trailing edge band, relative to the
	// bounding box diagonal. Vertices around the TE inside the band form
	// the base of a blunt trailing edge.
	TEEpsilon float64
}

// DefaultOptions returns the default metric settings.
func DefaultOptions() Options {
	return Options{
		CurvatureWindow: geom.DefaultCurvatureWindow,
		SmoothingWindow: 7,
		LEFitWindow:     2,
		WedgeSpan:       2,
		GridPoints:      600,
		TEEpsilon:       1e-6,
	}
}

// Descriptor computes one named scalar from an analysis.
type Descriptor func(a *topology.Analysis, opts Options) (float64, error)

type entry struct {
	name string
	fn   Descriptor
}

// registry lists descriptors in evaluation order. The thickness and camber
// pairs each share one profile evaluation per call; they stay independent
// functions so any one can be requested alone.
var registry = []entry{
	{ChordLength, chordLength},
	{ArcLengthTotal, arcLengthTotal},
	{Area, area},
	{LERadius, leRadius},
	{TEThickness, teThickness},
	{TEWedgeAngleDeg, teWedgeAngle},
	{ThicknessMax, func(a *topology.Analysis, o Options) (float64, error) { return profileStat(a, o, thicknessStat, false) }},
	{XThicknessMax, func(a *topology.Analysis, o Options) (float64, error) { return profileStat(a, o, thicknessStat, true) }},
	{CamberMax, func(a *topology.Analysis, o Options) (float64, error) { return profileStat(a, o, camberStat, false) }},
	{XCamberMax, func(a *topology.Analysis, o Options) (float64, error) { return profileStat(a, o, camberStat, true) }},
}

// Names returns every registered descriptor name in evaluation order.
func Names() []string {
	out := make([]string, len(registry))
	for i, e := range registry {
		out[i] = e.name
	}
	return out
}

// ErrUnknownDescriptor is recorded as the reason for unrecognized names.
var ErrUnknownDescriptor = errors.New("unknown descriptor")

// Compute evaluates the named descriptors, or all of them when names is
// empty. Unknown names, errors, panics and non-finite results are recorded
// as NotComputed with a reason.
func Compute(a *topology.Analysis, opts Options, names ...string) *DescriptorSet {
	if len(names) == 0 {
		names = Names()
	}
	byName := make(map[string]Descriptor, len(registry))
	for _, e := range registry {
		byName[e.name] = e.fn
	}

	ds := newDescriptorSet(len(names))
	for _, name := range names {
		if ds.has(name) {
			continue
		}
		fn, ok := byName[name]
		if !ok {
			ds.fail(name, ErrUnknownDescriptor.Error())
			continue
		}
		v, err := evaluate(fn, a, opts)
		switch {
		case err != nil:
			ds.fail(name, err.Error())
		case math.IsNaN(v) || math.IsInf(v, 0):
			ds.fail(name, fmt.Sprintf("non-finite result %v", v))
		default:
			ds.set(name, v)
		}
	}
	return ds
}

func evaluate(fn Descriptor, a *topology.Analysis, opts Options) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(a, opts)
}

// ---------------------------------------------------------------------------
// Global scalars
// ---------------------------------------------------------------------------

func chordLength(a *topology.Analysis, _ Options) (float64, error) {
	c := a.Chord()
	if c == 0 {
		return 0, errors.New("leading and trailing edge coincide")
	}
	return c, nil
}

func arcLengthTotal(a *topology.Analysis, _ Options) (float64, error) {
	return geom.Perimeter(a.Loop), nil
}

func area(a *topology.Analysis, _ Options) (float64, error) {
	return a.Area, nil
}

// ---------------------------------------------------------------------------
// Leading edge
// ---------------------------------------------------------------------------

// leRadius fits a circle to the LE and its LEFitWindow neighbours on each
// side. If the fit is singular it falls back to the reciprocal of the
// local curvature.
func leRadius(a *topology.Analysis, opts Options) (float64, error) {
	w := opts.LEFitWindow
	if w < 1 {
		w = 1
	}
	n := a.Loop.Len()
	if 2*w+1 > n {
		return 0, fmt.Errorf("insufficient points near LE: need %d, loop has %d", 2*w+1, n)
	}
	pts := make([]geom.Point, 0, 2*w+1)
	for k := -w; k <= w; k++ {
		pts = append(pts, a.Loop.At(a.LETE.LE+k))
	}
	if r, err := FitCircle(pts); err == nil {
		return r.Radius, nil
	}
	k := geom.Curvature(a.Loop, a.LETE.LE, opts.CurvatureWindow)
	if k == 0 {
		return 0, errors.New("zero curvature at LE")
	}
	return 1 / math.Abs(k), nil
}

// Circle is a fitted circle.
type Circle struct {
	Center geom.Point
	Radius float64
}

// FitCircle returns the algebraic least-squares circle through pts:
// x^2 + y^2 + D x + E y + F = 0. Points are shifted to their first sample
// before solving for conditioning.
func FitCircle(pts []geom.Point) (Circle, error) {
	if len(pts) < 3 {
		return Circle{}, fmt.Errorf("circle fit needs 3 points, got %d", len(pts))
	}
	o := pts[0]
	A := mat.NewDense(len(pts), 3, nil)
	b := mat.NewVecDense(len(pts), nil)
	for i, p := range pts {
		d := p.Sub(o)
		A.Set(i, 0, d.X)
		A.Set(i, 1, d.Y)
		A.Set(i, 2, 1)
		b.SetVec(i, -(d.X*d.X + d.Y*d.Y))
	}
	var x mat.VecDense
	if err := x.SolveVec(A, b); err != nil {
		return Circle{}, fmt.Errorf("circle fit: %w", err)
	}
	cx, cy := -x.AtVec(0)/2, -x.AtVec(1)/2
	r2 := cx*cx + cy*cy - x.AtVec(2)
	if r2 <= 0 || math.IsNaN(r2) || math.IsInf(r2, 0) {
		return Circle{}, errors.New("circle fit: degenerate radius")
	}
	return Circle{Center: o.Add(geom.Point{X: cx, Y: cy}), Radius: math.Sqrt(r2)}, nil
}

// ---------------------------------------------------------------------------
// Trailing edge
// ---------------------------------------------------------------------------

// fromTE returns a side's vertices ordered starting at the TE.
func fromTE(a *topology.Analysis, r topology.Range) []geom.Point {
	pts := r.Points(a.Loop)
	if r.Start != a.LETE.TE {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

// teThickness is the distance between the two corners of the trailing
// edge: the ends of the run of consecutive vertices around the TE that lie
// within the TE band of the maximum x. A sharp trailing edge is a run of
// one vertex and has zero thickness.
func teThickness(a *topology.Analysis, opts Options) (float64, error) {
	l := a.Loop
	b := l.Bounds()
	te := a.LETE.TE
	cut := math.Min(b.Max.X-opts.TEEpsilon*geom.Diagonal(b), l.At(te).X)
	inBand := func(i int) bool { return l.At(i).X >= cut }

	lo, hi := te, te
	for k := 0; k < l.Len()/2 && inBand(l.Prev(lo)); k++ {
		lo = l.Prev(lo)
	}
	for k := 0; k < l.Len()/2 && inBand(l.Next(hi)); k++ {
		hi = l.Next(hi)
	}
	return l.At(lo).Sub(l.At(hi)).Length(), nil
}

// teWedgeAngle is the angle between the two surfaces approaching the TE,
// each measured over WedgeSpan vertices starting one vertex in from the TE.
func teWedgeAngle(a *topology.Analysis, opts Options) (float64, error) {
	span := opts.WedgeSpan
	if span < 1 {
		span = 1
	}
	s := fromTE(a, a.Split.Suction)
	p := fromTE(a, a.Split.Pressure)
	if len(s) < span+2 || len(p) < span+2 {
		return 0, fmt.Errorf("insufficient points near TE: need %d per side", span+2)
	}
	us := s[1].Sub(s[1+span])
	up := p[1].Sub(p[1+span])
	den := us.Length() * up.Length()
	if den == 0 {
		return 0, errors.New("coincident points near TE")
	}
	c := math.Max(-1, math.Min(1, us.Dot(up)/den))
	return math.Acos(c) * 180 / math.Pi, nil
}

// ---------------------------------------------------------------------------
// Thickness and camber
// ---------------------------------------------------------------------------

type profile struct {
	x         []float64 // chord fraction
	thickness []float64
	camber    []float64
}

type statFn func(p profile) (value, x float64)

func thicknessStat(p profile) (float64, float64) {
	best := 0
	for i := range p.thickness {
		if p.thickness[i] > p.thickness[best] {
			best = i
		}
	}
	return p.thickness[best], p.x[best]
}

// camberStat returns the camber of largest magnitude, keeping its sign.
func camberStat(p profile) (float64, float64) {
	best := 0
	for i := range p.camber {
		if math.Abs(p.camber[i]) > math.Abs(p.camber[best]) {
			best = i
		}
	}
	return p.camber[best], p.x[best]
}

func profileStat(a *topology.Analysis, opts Options, fn statFn, wantX bool) (float64, error) {
	p, err := buildProfile(a, opts.GridPoints)
	if err != nil {
		return 0, err
	}
	v, x := fn(p)
	if wantX {
		return x, nil
	}
	return v, nil
}

// buildProfile samples both sides on a common chordwise grid in the chord
// frame. Values are in loop units; stations are chord fractions.
func buildProfile(a *topology.Analysis, n int) (profile, error) {
	if n < 2 {
		return profile{}, fmt.Errorf("grid needs at least 2 stations, got %d", n)
	}
	f := a.Frame()
	if f.Length == 0 {
		return profile{}, errors.New("zero chord")
	}
	upper := localSorted(a, a.Split.Suction, f)
	lower := localSorted(a, a.Split.Pressure, f)

	lo := math.Max(upper[0].X, lower[0].X)
	hi := math.Min(upper[len(upper)-1].X, lower[len(lower)-1].X)
	if hi <= lo {
		return profile{}, errors.New("sides do not overlap chordwise")
	}

	p := profile{
		x:         make([]float64, n),
		thickness: make([]float64, n),
		camber:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		x := lo + (hi-lo)*float64(i)/float64(n-1)
		yu := interp(upper, x)
		yl := interp(lower, x)
		p.x[i] = x / f.Length
		p.thickness[i] = yu - yl
		p.camber[i] = (yu + yl) / 2
	}
	return p, nil
}

func localSorted(a *topology.Analysis, r topology.Range, f topology.Frame) []geom.Point {
	pts := r.Points(a.Loop)
	for i := range pts {
		pts[i] = f.ToLocal(pts[i])
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	return pts
}

// interp linearly interpolates y at x over points sorted by x, clamping
// outside the range.
func interp(pts []geom.Point, x float64) float64 {
	if x <= pts[0].X {
		return pts[0].Y
	}
	last := pts[len(pts)-1]
	if x >= last.X {
		return last.Y
	}
	j := sort.Search(len(pts), func(i int) bool { return pts[i].X >= x })
	p0, p1 := pts[j-1], pts[j]
	if p1.X == p0.X {
		return p1.Y
	}
	t := (x - p0.X) / (p1.X - p0.X)
	return p0.Y + t*(p1.Y-p0.Y)
}
