package topology

import (
	"fmt"
	"strings"

	"github.com/chazu/foil/pkg/geom"
)

// TieBreak selects how competing leading-edge candidates are resolved.
type TieBreak int

const (
	// TieBreakStrict resolves ties inside one contiguous run of vertices
	// but fails with AmbiguousLETEError when the best curvature is shared
	// by separate locations.
	TieBreakStrict TieBreak = iota
	// TieBreakMinIndex always resolves to the tied candidate earliest in
	// the search window, counted from the extremum rather than from
	// vertex 0.
	TieBreakMinIndex
)

func (t TieBreak) String() string {
	if t == TieBreakMinIndex {
		return "min-index"
	}
	return "strict"
}

// ParseTieBreak parses "strict" or "min-index".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return TieBreakStrict, nil
	case "min-index", "min_index", "minindex":
		return TieBreakMinIndex, nil
	}
	return 0, fmt.Errorf("topology: unknown tie-break mode %q, expected strict or min-index", s)
}

// Options controls orientation and LE/TE detection.
type Options struct {
	// AreaEpsilon is the degenerate-area threshold relative to the squared
	// bounding box diagonal.
	AreaEpsilon float64
	// Epsilon is the width of the extremal-x bands used to collect TE
	// candidates and the chord reference, relative to the bounding box
	// diagonal.
	Epsilon float64
	// CurvatureWindow is the odd stencil width for curvature estimates.
	CurvatureWindow int
	// LESearchWindow is the number of vertices on each side of the
	// extremum opposite the TE that are searched for the LE.
	LESearchWindow int
	TieBreak       TieBreak
	// TieTolerance is the relative curvature difference under which two
	// LE candidates count as tied.
	TieTolerance float64
}

// DefaultOptions returns the default analysis settings.
func DefaultOptions() Options {
	return Options{
		AreaEpsilon:     1e-12,
		Epsilon:         1e-6,
		CurvatureWindow: geom.DefaultCurvatureWindow,
		LESearchWindow:  4,
		TieBreak:        TieBreakStrict,
		TieTolerance:    1e-6,
	}
}
