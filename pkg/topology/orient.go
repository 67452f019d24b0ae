// Package topology orients a normalized loop counter-clockwise, locates
// its leading and trailing edges and splits it into suction and pressure
// sides.
package topology

import (
	"math"

	"github.com/chazu/foil/pkg/geom"
)

// Orient returns the loop in CCW order together with its (positive) signed
// area and whether it had to be reversed. Reversal keeps vertex 0 in
// place. A loop whose |area| is within areaEps * diagonal^2 of zero fails
// with InvalidOrientationError.
func Orient(l *geom.Loop, areaEps float64) (*geom.Loop, float64, bool, error) {
	area := geom.SignedArea(l)
	d := geom.Diagonal(l.Bounds())
	tol := areaEps * d * d
	switch geom.OrientationOf(area, tol) {
	case geom.CCW:
		return l, area, false, nil
	case geom.CW:
		return l.Reversed(), math.Abs(area), true, nil
	}
	return nil, 0, false, &InvalidOrientationError{Area: area, Tolerance: tol}
}
