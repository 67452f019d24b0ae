package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/foil/pkg/field"
	"github.com/chazu/foil/pkg/geom/geomtest"
	"github.com/chazu/foil/pkg/kernel"
	"github.com/chazu/foil/pkg/kernel/sdfx"
	"github.com/chazu/foil/pkg/pipeline"
)

func newKernel() kernel.Kernel {
	return sdfx.New()
}

func naca(t *testing.T, cfg pipeline.Config) *pipeline.Result {
	t.Helper()
	res, err := pipeline.Analyze(geomtest.Symmetric(0.12, 60).Points(), cfg)
	require.NoError(t, err)
	res.Name = "naca0012"
	return res
}

func TestWallDistance_Domain(t *testing.T) {
	res := naca(t, pipeline.DefaultConfig())
	f, err := field.WallDistance(newKernel(), res, field.Options{Resolution: 160})
	require.NoError(t, err)

	assert.Equal(t, "naca0012", f.Name)
	assert.Equal(t, res.Domain.Rect, f.Bounds)
	// 16 by a little over 10 chords
	assert.Equal(t, 160, f.NX)
	assert.InDelta(t, 101, f.NY, 1)

	// Cells are 0.1 chords wide; a handful fall inside the 12% section.
	inside := f.Count(func(v float32) bool { return v > 0 })
	assert.Positive(t, inside)
	assert.Less(t, inside, 20)

	lo, _ := f.Range()
	assert.InDelta(t, -5.0, float64(lo), 0.1, "deepest fluid cell is about five chords from the far field")
}

func TestWallDistance_NoDomain(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.SkipDomain = true
	res := naca(t, cfg)

	f, err := field.WallDistance(newKernel(), res, field.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, field.DefaultResolution, f.NX)
	assert.InDelta(t, -0.5, f.Bounds.Min.X, 1e-3)
	assert.InDelta(t, 1.5, f.Bounds.Max.X, 1e-3)
}

func TestWallDistance_Errors(t *testing.T) {
	_, err := field.WallDistance(newKernel(), &pipeline.Result{}, field.DefaultOptions())
	require.Error(t, err)

	_, err = field.WallDistance(newKernel(), naca(t, pipeline.DefaultConfig()), field.Options{})
	require.Error(t, err)
}

func TestFields_KeepsIndices(t *testing.T) {
	res := naca(t, pipeline.DefaultConfig())
	fs, err := field.Fields(newKernel(), []*pipeline.Result{res, nil, res}, field.Options{Resolution: 16})
	require.NoError(t, err)
	require.Len(t, fs, 3)
	assert.NotNil(t, fs[0])
	assert.Nil(t, fs[1])
	assert.Equal(t, fs[0].Values, fs[2].Values)
}
