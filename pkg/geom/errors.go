package geom

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The typed errors below match them.
var (
	ErrDegenerateLoop = errors.New("degenerate loop")
	ErrNotClosed      = errors.New("loop not closed")
)

// DegenerateLoopError reports a loop that cannot enclose area: too few
// distinct points, non-finite coordinates or a collapsed extent.
type DegenerateLoopError struct {
	Reason    string
	Index     int     // offending point, -1 when the failure is global
	Distinct  int     // distinct points available
	Required  int     // distinct points required
	Value     float64 // computed value that failed the check
	Tolerance float64
}

func (e *DegenerateLoopError) Error() string {
	msg := "degenerate loop: " + e.Reason
	if e.Index >= 0 {
		msg += fmt.Sprintf(" at index %d", e.Index)
	}
	if e.Required > 0 {
		msg += fmt.Sprintf(" (%d distinct points, need %d)", e.Distinct, e.Required)
	}
	if e.Tolerance > 0 {
		msg += fmt.Sprintf(" (value %.6g, tolerance %.3g)", e.Value, e.Tolerance)
	}
	return msg
}

func (e *DegenerateLoopError) Is(target error) bool { return target == ErrDegenerateLoop }

// NotClosedError reports an open point sequence when auto-closing is
// disabled.
type NotClosedError struct {
	Gap       float64 // distance between first and last point
	Tolerance float64
	First     Point
	Last      Point
}

func (e *NotClosedError) Error() string {
	return fmt.Sprintf("loop not closed: gap %.6g between first (%.6g, %.6g) and last (%.6g, %.6g) exceeds tolerance %.3g",
		e.Gap, e.First.X, e.First.Y, e.Last.X, e.Last.Y, e.Tolerance)
}

func (e *NotClosedError) Is(target error) bool { return target == ErrNotClosed }

// tooFew builds the DegenerateLoopError for an undersized point set.
func tooFew(n int) *DegenerateLoopError {
	return &DegenerateLoopError{
		Reason:   "too few points",
		Index:    -1,
		Distinct: n,
		Required: MinPoints,
	}
}
