package metrics_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/geom/geomtest"
	"github.com/chazu/foil/pkg/metrics"
	"github.com/chazu/foil/pkg/topology"
)

func analyze(t *testing.T, l *geom.Loop) *topology.Analysis {
	t.Helper()
	a, err := topology.Analyze(l, topology.DefaultOptions())
	require.NoError(t, err)
	return a
}

// ---------------------------------------------------------------------------
// Descriptors
// ---------------------------------------------------------------------------

func TestCompute_SymmetricNACA(t *testing.T) {
	a := analyze(t, geomtest.Symmetric(0.12, 100).Loop())
	ds := metrics.Compute(a, metrics.DefaultOptions())

	assert.Empty(t, ds.Missing())
	assert.Equal(t, metrics.Names(), ds.Names())

	assert.InDelta(t, 1.0, ds.Value(metrics.ChordLength), 1e-9)
	assert.InDelta(t, 0.12, ds.Value(metrics.ThicknessMax), 2e-3)
	assert.InDelta(t, 0.30, ds.Value(metrics.XThicknessMax), 0.02)
	assert.InDelta(t, 0.0, ds.Value(metrics.CamberMax), 1e-9)
	assert.InEpsilon(t, 1.1019*0.12*0.12, ds.Value(metrics.LERadius), 0.1)
	assert.InDelta(t, 16.5, ds.Value(metrics.TEWedgeAngleDeg), 2.0)
	assert.InDelta(t, 0.0, ds.Value(metrics.TEThickness), 1e-9)
	assert.InDelta(t, 0.0821, ds.Value(metrics.Area), 2e-3)
	assert.Greater(t, ds.Value(metrics.ArcLengthTotal), 2.0)
	assert.Less(t, ds.Value(metrics.ArcLengthTotal), 2.1)
}

func TestCompute_CamberedNACA(t *testing.T) {
	a := analyze(t, geomtest.NACA4{Camber: 0.02, CamberPos: 0.4, Thickness: 0.12, Half: 100}.Loop())
	ds := metrics.Compute(a, metrics.DefaultOptions(), metrics.CamberMax, metrics.XCamberMax)

	assert.Equal(t, []string{metrics.CamberMax, metrics.XCamberMax}, ds.Names())
	assert.InDelta(t, 0.02, ds.Value(metrics.CamberMax), 1e-3)
	assert.InDelta(t, 0.4, ds.Value(metrics.XCamberMax), 0.03)
}

func TestCompute_BluntTrailingEdge(t *testing.T) {
	a := analyze(t, geomtest.NACA4{Thickness: 0.12, Half: 30, BluntTE: true}.Loop())
	ds := metrics.Compute(a, metrics.DefaultOptions(), metrics.TEThickness)
	assert.InDelta(t, 2*5*0.12*0.0021, ds.Value(metrics.TEThickness), 1e-4)
}

func TestCompute_SharpTrailingEdgeIsZero(t *testing.T) {
	for _, half := range []int{20, 50, 100} {
		a := analyze(t, geomtest.Symmetric(0.12, half).Loop())
		ds := metrics.Compute(a, metrics.DefaultOptions(), metrics.TEThickness)
		require.True(t, ds.Computed(metrics.TEThickness), "half=%d", half)
		assert.InDelta(t, 0.0, ds.Value(metrics.TEThickness), 1e-9, "half=%d", half)
	}
}

func TestCompute_BluntTrailingEdgeIndependentOfSpacing(t *testing.T) {
	var got []float64
	for _, half := range []int{20, 60} {
		a := analyze(t, geomtest.NACA4{Thickness: 0.12, Half: half, BluntTE: true}.Loop())
		ds := metrics.Compute(a, metrics.DefaultOptions(), metrics.TEThickness)
		got = append(got, ds.Value(metrics.TEThickness))
	}
	assert.InDelta(t, got[0], got[1], 1e-12)
}

func TestCompute_PartialFailure(t *testing.T) {
	a := analyze(t, geomtest.Symmetric(0.12, 20).Loop())

	opts := metrics.DefaultOptions()
	opts.GridPoints = 1
	ds := metrics.Compute(a, opts, metrics.ChordLength, "bogus", metrics.ThicknessMax)

	assert.True(t, ds.Computed(metrics.ChordLength))
	assert.False(t, ds.Computed("bogus"))
	assert.Equal(t, "unknown descriptor", ds.Reason("bogus"))
	assert.False(t, ds.Computed(metrics.ThicknessMax))
	assert.Contains(t, ds.Reason(metrics.ThicknessMax), "grid")
	assert.True(t, math.IsNaN(ds.Value(metrics.ThicknessMax)))
	assert.Equal(t, []string{"bogus", metrics.ThicknessMax}, ds.Missing())
	assert.Empty(t, ds.Reason(metrics.ChordLength))
}

func TestCompute_InsufficientPointsNearLE(t *testing.T) {
	a := analyze(t, geomtest.Symmetric(0.12, 10).Loop())

	opts := metrics.DefaultOptions()
	opts.LEFitWindow = 10
	opts.WedgeSpan = 20
	ds := metrics.Compute(a, opts)

	assert.False(t, ds.Computed(metrics.LERadius))
	assert.Contains(t, ds.Reason(metrics.LERadius), "insufficient points")
	assert.False(t, ds.Computed(metrics.TEWedgeAngleDeg))
	assert.True(t, ds.Computed(metrics.ChordLength))
	assert.True(t, ds.Computed(metrics.ThicknessMax))
}

func TestCompute_OrderIndependent(t *testing.T) {
	a := analyze(t, geomtest.NACA4{Camber: 0.04, CamberPos: 0.4, Thickness: 0.15, Half: 40}.Loop())
	fwd := metrics.Compute(a, metrics.DefaultOptions())
	require.Empty(t, fwd.Missing())

	names := metrics.Names()
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	rev := metrics.Compute(a, metrics.DefaultOptions(), names...)
	assert.Equal(t, fwd.Map(), rev.Map())
}

func TestDescriptorSet_JSON(t *testing.T) {
	a := analyze(t, geomtest.Symmetric(0.12, 20).Loop())
	ds := metrics.Compute(a, metrics.DefaultOptions(), metrics.ChordLength, "bogus")

	raw, err := json.Marshal(ds)
	require.NoError(t, err)

	var out map[string]*float64
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Contains(t, out, "bogus")
	assert.Nil(t, out["bogus"])
	require.NotNil(t, out[metrics.ChordLength])
	assert.InDelta(t, 1.0, *out[metrics.ChordLength], 1e-9)
}

func TestCompute_DuplicateNamesOnce(t *testing.T) {
	a := analyze(t, geomtest.Symmetric(0.12, 20).Loop())
	ds := metrics.Compute(a, metrics.DefaultOptions(),
		metrics.ChordLength, "bogus", metrics.ChordLength, "bogus")
	assert.Equal(t, []string{metrics.ChordLength, "bogus"}, ds.Names())

	raw, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), `"chord_length"`))
}

// ---------------------------------------------------------------------------
// Circle fit
// ---------------------------------------------------------------------------

func TestFitCircle(t *testing.T) {
	var pts []geom.Point
	for _, th := range []float64{0.1, 0.4, 0.9, 1.3, 2.0} {
		pts = append(pts, geom.Point{X: 3 + 0.25*math.Cos(th), Y: -1 + 0.25*math.Sin(th)})
	}
	c, err := metrics.FitCircle(pts)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, c.Radius, 1e-9)
	assert.InDelta(t, 3.0, c.Center.X, 1e-9)
	assert.InDelta(t, -1.0, c.Center.Y, 1e-9)

	_, err = metrics.FitCircle(pts[:2])
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Per-vertex scalars
// ---------------------------------------------------------------------------

func TestPerVertex(t *testing.T) {
	a := analyze(t, geomtest.Symmetric(0.12, 40).Loop())
	pv := metrics.PerVertex(a, metrics.DefaultOptions())
	n := a.Loop.Len()

	require.Equal(t, n, pv.Len())
	for _, arr := range [][]float64{pv.X, pv.Y, pv.S, pv.SNorm, pv.Curvature, pv.NormalX, pv.NormalY, pv.DistLE, pv.DistTE} {
		assert.Len(t, arr, n)
	}
	assert.Equal(t, 0.0, pv.DistLE[a.LETE.LE])
	assert.Equal(t, 0.0, pv.DistTE[a.LETE.TE])
	assert.Equal(t, 0.0, pv.SNorm[0])
	for i := 1; i < n; i++ {
		assert.Greater(t, pv.SNorm[i], pv.SNorm[i-1])
		assert.Less(t, pv.SNorm[i], 1.0)
	}
	assert.Equal(t, int(topology.Suction), pv.Side[a.LETE.TE])
	assert.Equal(t, int(topology.Suction), pv.Side[10])
	assert.Equal(t, int(topology.Pressure), pv.Side[60])

	// Away from the TE, smoothed curvature peaks at the LE.
	s := geom.Arclength(a.Loop)
	peak := a.LETE.LE
	for i, k := range pv.Curvature {
		if geom.AlongLoopDistance(s, i, a.LETE.TE) > 0.1 && k > pv.Curvature[peak] {
			peak = i
		}
	}
	assert.LessOrEqual(t, geom.AlongLoopDistance(s, peak, a.LETE.LE), 0.01)
}

func TestPerVertex_NormalsOutward(t *testing.T) {
	a := analyze(t, geom.MustLoop(geomtest.Ellipse(0.5, 0.5, 0.1, 60)...))
	pv := metrics.PerVertex(a, metrics.DefaultOptions())
	c := geom.Centroid(a.Loop)
	for i := 0; i < pv.Len(); i++ {
		out := geom.Point{X: pv.X[i] - c.X, Y: pv.Y[i] - c.Y}
		assert.Greater(t, out.Dot(geom.Point{X: pv.NormalX[i], Y: pv.NormalY[i]}), 0.0, "vertex %d", i)
	}
}
