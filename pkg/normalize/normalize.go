// Package normalize turns a raw ordered point sequence into a closed
// geom.Loop: consecutive near-duplicates are collapsed, closure is checked
// or supplied, and an optional affine transform puts the leading point at
// the origin and scales the chord to one.
package normalize

import (
	"math"

	"github.com/chazu/foil/pkg/geom"
)

// DefaultEpsilon is the default collapse tolerance, relative to the
// bounding box diagonal of the input.
const DefaultEpsilon = 1e-9

// Options controls normalization.
type Options struct {
	// Epsilon is the coincidence tolerance as a fraction of the input's
	// bounding box diagonal.
	Epsilon float64
	// AutoClose treats an open sequence as implicitly closed. When false an
	// open sequence fails with geom.NotClosedError.
	AutoClose bool
	// TranslateToLE moves the minimum-x point to the origin.
	TranslateToLE bool
	// ScaleToUnitChord scales uniformly so that max x - min x is one.
	ScaleToUnitChord bool
}

// DefaultOptions returns the default normalization settings.
func DefaultOptions() Options {
	return Options{Epsilon: DefaultEpsilon, AutoClose: true}
}

// Result is a normalized loop plus a record of what was done to it.
type Result struct {
	Loop *geom.Loop
	// Removed counts collapsed duplicates, including a repeated closing
	// point.
	Removed int
	// ExplicitlyClosed is true when the input repeated its first point at
	// the end; false means the loop was closed implicitly.
	ExplicitlyClosed bool
	// Origin and Scale record the applied transform p' = (p - Origin) * Scale.
	Origin geom.Point
	Scale  float64
	// Tolerance is the absolute coincidence tolerance that was applied.
	Tolerance float64
}

// Normalize builds a Loop from raw points.
func Normalize(raw []geom.Point, opts Options) (*Result, error) {
	if len(raw) < geom.MinPoints {
		return nil, &geom.DegenerateLoopError{
			Reason:   "too few points",
			Index:    -1,
			Distinct: len(raw),
			Required: geom.MinPoints,
		}
	}
	for i, p := range raw {
		if !geom.IsFinite(p) {
			return nil, &geom.DegenerateLoopError{Reason: "non-finite coordinate", Index: i}
		}
	}

	tol := Tolerance(raw, opts.Epsilon)

	kept := Dedupe(raw, tol)
	res := &Result{Removed: len(raw) - len(kept), Scale: 1, Tolerance: tol}

	if len(kept) >= 2 {
		gap := kept[len(kept)-1].Sub(kept[0]).Length()
		switch {
		case gap <= tol:
			kept = kept[:len(kept)-1]
			res.Removed++
			res.ExplicitlyClosed = true
		case !opts.AutoClose:
			return nil, &geom.NotClosedError{
				Gap:       gap,
				Tolerance: tol,
				First:     kept[0],
				Last:      kept[len(kept)-1],
			}
		}
	}

	if len(kept) < geom.MinPoints {
		return nil, &geom.DegenerateLoopError{
			Reason:   "too few distinct points after deduplication",
			Index:    -1,
			Distinct: len(kept),
			Required: geom.MinPoints,
		}
	}

	loop, err := geom.NewLoop(kept)
	if err != nil {
		return nil, err
	}

	if opts.TranslateToLE || opts.ScaleToUnitChord {
		b := loop.Bounds()
		if opts.TranslateToLE {
			res.Origin = loop.At(LeadingPoint(kept))
		}
		if opts.ScaleToUnitChord {
			chord := b.Max.X - b.Min.X
			if chord <= tol {
				return nil, &geom.DegenerateLoopError{
					Reason:    "zero chord",
					Index:     -1,
					Value:     chord,
					Tolerance: tol,
				}
			}
			res.Scale = 1 / chord
		}
		loop = loop.Transform(res.Origin, res.Scale)
	}

	res.Loop = loop
	return res, nil
}

// Tolerance converts a relative epsilon into an absolute distance using the
// bounding box diagonal of pts. A zero diagonal falls back to eps itself.
func Tolerance(pts []geom.Point, eps float64) float64 {
	d := geom.Diagonal(geom.BoundsOf(pts))
	if d == 0 {
		return eps
	}
	return eps * d
}

// Dedupe drops every point within tol of the last kept point.
func Dedupe(pts []geom.Point, tol float64) []geom.Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]geom.Point, 0, len(pts))
	out = append(out, pts[0])
	for _, p := range pts[1:] {
		if p.Sub(out[len(out)-1]).Length() <= tol {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LeadingPoint returns the index of the minimum-x point, ties broken by
// smallest |y| and then by lowest index.
func LeadingPoint(pts []geom.Point) int {
	best := 0
	for i, p := range pts[1:] {
		i++
		q := pts[best]
		switch {
		case p.X < q.X:
			best = i
		case p.X == q.X && math.Abs(p.Y) < math.Abs(q.Y):
			best = i
		}
	}
	return best
}
