package topology

import (
	"fmt"

	"github.com/chazu/foil/pkg/geom"
)

// Analysis is an oriented, LE/TE-indexed, side-split loop. It is derived
// from one loop snapshot and never modified.
type Analysis struct {
	Loop    *geom.Loop
	Area    float64 // positive, the loop is CCW
	Flipped bool    // the input was CW and has been reversed
	LETE    LETE
	Split   SideSplit
}

// Analyze orients the loop, detects LE/TE and splits the sides. Any
// failure aborts the analysis; no partial result is returned.
func Analyze(l *geom.Loop, opts Options) (*Analysis, error) {
	oriented, area, flipped, err := Orient(l, opts.AreaEpsilon)
	if err != nil {
		return nil, fmt.Errorf("orient: %w", err)
	}
	lete, err := DetectLETE(oriented, opts)
	if err != nil {
		return nil, fmt.Errorf("detect LE/TE: %w", err)
	}
	split, err := Split(oriented, lete)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return &Analysis{
		Loop:    oriented,
		Area:    area,
		Flipped: flipped,
		LETE:    lete,
		Split:   split,
	}, nil
}

// LE returns the leading edge point.
func (a *Analysis) LE() geom.Point { return a.Loop.At(a.LETE.LE) }

// TE returns the trailing edge point.
func (a *Analysis) TE() geom.Point { return a.Loop.At(a.LETE.TE) }

// Chord returns the LE-TE distance.
func (a *Analysis) Chord() float64 { return a.TE().Sub(a.LE()).Length() }

// Frame returns the chord-aligned frame.
func (a *Analysis) Frame() Frame { return NewFrame(a.LE(), a.TE()) }
