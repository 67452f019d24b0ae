package normalize_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/geom/geomtest"
	"github.com/chazu/foil/pkg/normalize"
)

func pts(xy ...float64) []geom.Point {
	out := make([]geom.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geom.Point{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func TestNormalize_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		in   []geom.Point
	}{
		{"two points", pts(0, 0, 1, 0)},
		{"two distinct after dedupe", pts(0, 0, 0, 0, 1, 0, 1, 0)},
		{"two distinct with closing point", pts(0, 0, 1, 1, 0, 0)},
		{"all identical", pts(3, 3, 3, 3, 3, 3, 3, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize.Normalize(tt.in, normalize.DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, geom.ErrDegenerateLoop), "got %v", err)
		})
	}
}

func TestNormalize_NonFinite(t *testing.T) {
	in := pts(0, 0, 1, 0, 1, 1)
	in[1].Y = math.NaN()
	_, err := normalize.Normalize(in, normalize.DefaultOptions())
	var de *geom.DegenerateLoopError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Index)
}

func TestNormalize_DropsExplicitClosure(t *testing.T) {
	res, err := normalize.Normalize(pts(0, 0, 1, 0, 1, 1, 0, 1, 0, 0), normalize.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Loop.Len())
	assert.True(t, res.ExplicitlyClosed)
	assert.Equal(t, 1, res.Removed)
}

func TestNormalize_CollapsesConsecutiveDuplicates(t *testing.T) {
	in := pts(0, 0, 1, 0, 1, 0, 1, 1e-12, 1, 1, 0, 1)
	res, err := normalize.Normalize(in, normalize.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Loop.Len())
	assert.Equal(t, 2, res.Removed)
	assert.False(t, res.ExplicitlyClosed)
}

func TestNormalize_NotClosed(t *testing.T) {
	opts := normalize.DefaultOptions()
	opts.AutoClose = false

	_, err := normalize.Normalize(pts(0, 0, 1, 0, 1, 1, 0, 1), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, geom.ErrNotClosed))
	var nc *geom.NotClosedError
	require.ErrorAs(t, err, &nc)
	assert.InDelta(t, 1.0, nc.Gap, 1e-12)
	assert.Greater(t, nc.Tolerance, 0.0)

	res, err := normalize.Normalize(pts(0, 0, 1, 0, 1, 1, 0, 1, 0, 0), opts)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Loop.Len())
}

func TestNormalize_PreservesOrderAndWinding(t *testing.T) {
	res, err := normalize.Normalize(geomtest.UnitSquareCW(), normalize.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, geomtest.UnitSquareCW(), res.Loop.Points())
}

func TestNormalize_AffineTransform(t *testing.T) {
	in := geomtest.Symmetric(0.12, 30).Points()
	for i := range in {
		in[i] = in[i].MulScalar(2.5).Add(geom.Point{X: 3, Y: -1})
	}
	opts := normalize.DefaultOptions()
	opts.TranslateToLE = true
	opts.ScaleToUnitChord = true

	res, err := normalize.Normalize(in, opts)
	require.NoError(t, err)
	b := res.Loop.Bounds()
	assert.InDelta(t, 0.0, b.Min.X, 1e-12)
	assert.InDelta(t, 1.0, b.Max.X, 1e-12)
	assert.InDelta(t, 0.4, res.Scale, 1e-12)
	assert.InDelta(t, 3.0, res.Origin.X, 1e-12)
	assert.InDelta(t, -1.0, res.Origin.Y, 1e-12)
}

func TestNormalize_ZeroChord(t *testing.T) {
	opts := normalize.DefaultOptions()
	opts.ScaleToUnitChord = true
	_, err := normalize.Normalize(pts(0, 0, 0, 1, 0, 2), opts)
	var de *geom.DegenerateLoopError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "zero chord", de.Reason)
}

func TestNormalize_Idempotent(t *testing.T) {
	opts := normalize.DefaultOptions()
	opts.TranslateToLE = true
	opts.ScaleToUnitChord = true

	first, err := normalize.Normalize(geomtest.NACA4{Camber: 0.02, CamberPos: 0.4, Thickness: 0.12, Half: 40}.Points(), opts)
	require.NoError(t, err)
	second, err := normalize.Normalize(first.Loop.Points(), opts)
	require.NoError(t, err)
	assert.True(t, first.Loop.Equal(second.Loop, 1e-12))
	assert.Equal(t, 0, second.Removed)
}

func TestLeadingPoint(t *testing.T) {
	assert.Equal(t, 2, normalize.LeadingPoint(pts(1, 0, 0, 0.5, 0, -0.1, 0, 0.1)))
	assert.Equal(t, 1, normalize.LeadingPoint(pts(1, 0, 0, 0.1, 0, -0.1)))
}
