package topology

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is.
var (
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrAmbiguousLETE      = errors.New("ambiguous leading/trailing edge")
)

// InvalidOrientationError reports a loop whose signed area is too close to
// zero to define a winding direction.
type InvalidOrientationError struct {
	Area      float64
	Tolerance float64
}

func (e *InvalidOrientationError) Error() string {
	return fmt.Sprintf("invalid orientation: signed area %.6g within tolerance %.3g of zero", e.Area, e.Tolerance)
}

func (e *InvalidOrientationError) Is(target error) bool { return target == ErrInvalidOrientation }

// AmbiguousLETEError reports a leading or trailing edge that cannot be
// chosen deterministically.
type AmbiguousLETEError struct {
	Role      string // "LE" or "TE"
	Reason    string
	Indices   []int     // competing vertex indices
	Values    []float64 // score of each competing vertex (curvature for LE)
	Tolerance float64
}

func (e *AmbiguousLETEError) Error() string {
	msg := fmt.Sprintf("ambiguous %s: %s", e.Role, e.Reason)
	if len(e.Indices) > 0 {
		msg += fmt.Sprintf(" (indices %v", e.Indices)
		if len(e.Values) > 0 {
			msg += fmt.Sprintf(", values %.6g", e.Values)
		}
		msg += fmt.Sprintf(", tolerance %.3g)", e.Tolerance)
	}
	return msg
}

func (e *AmbiguousLETEError) Is(target error) bool { return target == ErrAmbiguousLETE }
