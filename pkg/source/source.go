// Package source reads raw airfoil point sequences from coordinate text
// files, CAD polylines and in-memory slices. Format selection is explicit:
// DetectFormat decides once from the file name and leading bytes, and Open
// returns the matching GeometrySource. Parsers are never tried in turn.
package source

import (
	"context"
	"fmt"

	"github.com/chazu/foil/pkg/geom"
)

// Kind identifies a GeometrySource variant.
type Kind int

const (
	KindCoordinateFile Kind = iota
	KindCADCurve
	KindInline
)

func (k Kind) String() string {
	switch k {
	case KindCoordinateFile:
		return "coordinate-file"
	case KindCADCurve:
		return "cad-curve"
	case KindInline:
		return "inline"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Raw is an unvalidated point sequence as read from a source.
type Raw struct {
	Title  string // header line or layer name, may be empty
	Points []geom.Point
	// CurveIDs holds, per point, the index of the CAD curve it came from.
	// It is nil for sources with a single curve.
	CurveIDs []int
}

// GeometrySource produces raw points for one airfoil.
type GeometrySource interface {
	// Name identifies the source in logs and results.
	Name() string
	Kind() Kind
	Read(ctx context.Context) (*Raw, error)
}

// ---------------------------------------------------------------------------
// Inline
// ---------------------------------------------------------------------------

// Inline serves points held in memory.
type Inline struct {
	Label  string
	Points []geom.Point
}

var _ GeometrySource = (*Inline)(nil)

func (s *Inline) Name() string { return s.Label }
func (s *Inline) Kind() Kind   { return KindInline }

// Read returns a copy of the points.
func (s *Inline) Read(ctx context.Context) (*Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Raw{Title: s.Label, Points: append([]geom.Point(nil), s.Points...)}, nil
}
