// Package validate reports quality problems in a loop that the structural
// checks of the normalizer and topology analyzer do not catch. Findings are
// split into blocking errors and advisory warnings.
package validate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/foil/pkg/geom"
)

// Severity indicates whether a finding blocks analysis or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // blocks analysis in strict mode
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding codes.
const (
	CodeSelfIntersection = "SELF_INTERSECTION"
	CodeDuplicatePoint   = "DUPLICATE_POINT"
	CodeSegmentRatio     = "SEGMENT_RATIO"
	CodeSpike            = "SPIKE"
)

// Finding describes a single validation result.
type Finding struct {
	Code     string   `json:"code" yaml:"code"`
	Index    int      `json:"index" yaml:"index"` // vertex or edge start, -1 when loop-wide
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"-" yaml:"-"`
}

func (f Finding) Error() string {
	if f.Index < 0 {
		return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Code, f.Message)
	}
	return fmt.Sprintf("[%s] %s at %d: %s", f.Severity, f.Code, f.Index, f.Message)
}

// Report bundles errors (blocking) and warnings (advisory).
type Report struct {
	Errors   []Finding `json:"errors" yaml:"errors"`
	Warnings []Finding `json:"warnings" yaml:"warnings"`
}

// OK reports whether the loop has no blocking findings.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Err joins the blocking findings into one error, or returns nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, f := range r.Errors {
		errs[i] = f
	}
	return fmt.Errorf("validate: %d blocking finding(s): %w", len(r.Errors), errors.Join(errs...))
}

// Options holds the advisory thresholds.
type Options struct {
	// DuplicateTolerance is the distance, relative to the bounding box
	// diagonal, under which two non-consecutive vertices count as the same
	// point.
	DuplicateTolerance float64
	// MaxSegmentRatio is the largest allowed ratio between the longest and
	// shortest edge.
	MaxSegmentRatio float64
	// SpikeAngleDeg is the exterior turn angle above which a vertex is
	// reported as a spike.
	SpikeAngleDeg float64
}

// DefaultOptions returns the default thresholds. The spike limit leaves
// room for sharp trailing edges.
func DefaultOptions() Options {
	return Options{
		DuplicateTolerance: 1e-9,
		MaxSegmentRatio:    100,
		SpikeAngleDeg:      175,
	}
}

// Loop runs every check. It never mutates the loop.
func Loop(l *geom.Loop, opts Options) Report {
	var r Report
	r.Errors = append(r.Errors, checkSimple(l)...)

	r.Warnings = append(r.Warnings, checkDuplicates(l, opts.DuplicateTolerance)...)
	r.Warnings = append(r.Warnings, checkSegmentRatio(l, opts.MaxSegmentRatio)...)
	r.Warnings = append(r.Warnings, checkSpikes(l, opts.SpikeAngleDeg)...)
	return r
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// checkSimple reports crossing edges. Orientation and curvature are
// meaningless on a loop that is not simple.
func checkSimple(l *geom.Loop) []Finding {
	var errs []Finding
	for _, c := range geom.SelfIntersections(l) {
		errs = append(errs, Finding{
			Code:     CodeSelfIntersection,
			Index:    c.I,
			Message:  fmt.Sprintf("edge %d crosses edge %d at (%.6g, %.6g)", c.I, c.J, c.At.X, c.At.Y),
			Severity: SeverityError,
		})
	}
	return errs
}

// ---------------------------------------------------------------------------
// Warnings
// ---------------------------------------------------------------------------

// checkDuplicates finds non-consecutive vertices closer than the tolerance
// with a sweep over x-sorted vertices.
func checkDuplicates(l *geom.Loop, rel float64) []Finding {
	n := l.Len()
	tol := rel * geom.Diagonal(l.Bounds())
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return l.At(order[a]).X < l.At(order[b]).X })

	var warnings []Finding
	for a := 0; a < n; a++ {
		i := order[a]
		pi := l.At(i)
		for b := a + 1; b < n; b++ {
			j := order[b]
			pj := l.At(j)
			if pj.X-pi.X > tol {
				break
			}
			if l.Next(i) == j || l.Next(j) == i {
				continue
			}
			if pj.Sub(pi).Length() <= tol {
				lo, hi := i, j
				if lo > hi {
					lo, hi = hi, lo
				}
				warnings = append(warnings, Finding{
					Code:     CodeDuplicatePoint,
					Index:    hi,
					Message:  fmt.Sprintf("vertex %d repeats vertex %d at (%.6g, %.6g)", hi, lo, pi.X, pi.Y),
					Severity: SeverityWarning,
				})
			}
		}
	}
	sort.Slice(warnings, func(a, b int) bool { return warnings[a].Index < warnings[b].Index })
	return warnings
}

// checkSegmentRatio warns when edge lengths vary too much for stable
// curvature estimates.
func checkSegmentRatio(l *geom.Loop, limit float64) []Finding {
	if limit <= 0 {
		return nil
	}
	lengths := geom.SegmentLengths(l)
	lo, hi := 0, 0
	for i, s := range lengths {
		if s < lengths[lo] {
			lo = i
		}
		if s > lengths[hi] {
			hi = i
		}
	}
	if lengths[lo] == 0 {
		return nil // coincident neighbours are rejected by the normalizer
	}
	ratio := lengths[hi] / lengths[lo]
	if ratio <= limit {
		return nil
	}
	return []Finding{{
		Code:     CodeSegmentRatio,
		Index:    lo,
		Message:  fmt.Sprintf("longest edge %d is %.1fx the shortest edge %d (limit %.1f)", hi, ratio, lo, limit),
		Severity: SeverityWarning,
	}}
}

// checkSpikes warns about vertices where the boundary nearly doubles back.
func checkSpikes(l *geom.Loop, limitDeg float64) []Finding {
	if limitDeg <= 0 {
		return nil
	}
	limit := limitDeg * math.Pi / 180
	var warnings []Finding
	for i := 0; i < l.Len(); i++ {
		a := geom.TurnAngle(l, i)
		if math.Abs(a) > limit {
			warnings = append(warnings, Finding{
				Code:     CodeSpike,
				Index:    i,
				Message:  fmt.Sprintf("turn angle %.1f deg exceeds %.1f deg", a*180/math.Pi, limitDeg),
				Severity: SeverityWarning,
			})
		}
	}
	return warnings
}
