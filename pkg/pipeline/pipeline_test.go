package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/foil/pkg/cache"
	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/geom/geomtest"
	"github.com/chazu/foil/pkg/logging"
	"github.com/chazu/foil/pkg/metrics"
	"github.com/chazu/foil/pkg/pipeline"
	"github.com/chazu/foil/pkg/source"
	"github.com/chazu/foil/pkg/telemetry"
	"github.com/chazu/foil/pkg/topology"
	"github.com/chazu/foil/pkg/validate"
)

func naca0012() []geom.Point { return geomtest.Symmetric(0.12, 100).Points() }

func bowtie() []geom.Point {
	return []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}}
}

func TestAnalyze_NACA0012(t *testing.T) {
	res, err := pipeline.Analyze(naca0012(), pipeline.DefaultConfig())
	require.NoError(t, err)

	assert.Positive(t, res.Analysis.Area)
	assert.True(t, res.Report.OK())
	assert.InDelta(t, 1.0, res.Descriptors.Value(metrics.ChordLength), 1e-9)
	assert.Empty(t, res.Descriptors.Missing())
	assert.Equal(t, res.Loop().Len(), res.Scalars.Len())

	require.NotNil(t, res.Domain)
	assert.InDelta(t, -5.0, res.Domain.Rect.Min.X, 1e-9)
	assert.InDelta(t, 11.0, res.Domain.Rect.Max.X, 1e-9)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a, err := pipeline.Analyze(naca0012(), pipeline.DefaultConfig())
	require.NoError(t, err)
	b, err := pipeline.Analyze(naca0012(), pipeline.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Descriptors.Map(), b.Descriptors.Map())
	assert.Equal(t, a.Loop().Points(), b.Loop().Points())
}

func TestAnalyze_StageErrors(t *testing.T) {
	strict := pipeline.DefaultConfig()
	strict.Strict = true

	badDomain := pipeline.DefaultConfig()
	badDomain.Domain.Margins.Up = -1

	tests := []struct {
		name     string
		pts      []geom.Point
		cfg      pipeline.Config
		stage    string
		sentinel error
	}{
		{"two points", []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}, pipeline.DefaultConfig(), pipeline.StageNormalize, geom.ErrDegenerateLoop},
		{"bowtie lenient", bowtie(), pipeline.DefaultConfig(), pipeline.StageTopology, topology.ErrInvalidOrientation},
		{"negative margin", naca0012(), badDomain, pipeline.StageDomain, domain.ErrInvalidDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := pipeline.Analyze(tt.pts, tt.cfg)
			require.Error(t, err)
			assert.Nil(t, res)

			var se *pipeline.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), "pipeline: "+tt.stage)
		})
	}

	t.Run("triangle", func(t *testing.T) {
		// Every vertex of a triangle neighbours the trailing edge.
		_, err := pipeline.Analyze([]geom.Point{{X: 1, Y: 0}, {X: 0, Y: 0.1}, {X: 0, Y: -0.1}}, pipeline.DefaultConfig())
		require.ErrorIs(t, err, topology.ErrAmbiguousLETE)
		assert.True(t, strings.HasPrefix(err.Error(), "pipeline: topology: detect LE/TE: ambiguous LE"), err.Error())
		assert.Equal(t, 1, strings.Count(err.Error(), "topology:"))
	})

	t.Run("bowtie strict", func(t *testing.T) {
		_, err := pipeline.Analyze(bowtie(), strict)
		var se *pipeline.StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, pipeline.StageValidate, se.Stage)
		var f validate.Finding
		require.ErrorAs(t, err, &f)
		assert.Equal(t, validate.CodeSelfIntersection, f.Code)
	})
}

func TestAnalyze_SkipDomainAndDescriptors(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.SkipDomain = true
	cfg.Descriptors = []string{metrics.Area, metrics.LERadius}

	res, err := pipeline.Analyze(naca0012(), cfg)
	require.NoError(t, err)
	assert.Nil(t, res.Domain)
	assert.Equal(t, []string{metrics.Area, metrics.LERadius}, res.Descriptors.Names())
}

func TestConfig_Key(t *testing.T) {
	a := pipeline.DefaultConfig()
	b := pipeline.DefaultConfig()
	assert.Equal(t, a.Key(), b.Key())

	b.Normalize.Epsilon = 1e-6
	assert.NotEqual(t, a.Key(), b.Key())

	c := pipeline.DefaultConfig()
	c.Domain.Margins.Back = 20
	assert.NotEqual(t, a.Key(), c.Key())
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func newRunner(t *testing.T, opts ...pipeline.Option) (*pipeline.Runner, *telemetry.Metrics, *observer.ObservedLogs) {
	t.Helper()
	m, err := telemetry.New(nil)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]pipeline.Option{
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logging.NewFromCore(core)),
	}, opts...)
	return pipeline.NewRunner(pipeline.DefaultConfig(), opts...), m, logs
}

func TestRunner_Run(t *testing.T) {
	r, m, logs := newRunner(t)

	res, err := r.Run(context.Background(), &source.Inline{Label: "naca0012", Points: naca0012()})
	require.NoError(t, err)
	assert.Equal(t, "naca0012", res.Name)
	assert.Equal(t, "naca0012", res.Title)
	assert.NotZero(t, res.Fingerprint)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoopsTotal.WithLabelValues(telemetry.StatusOK)))
	assert.Equal(t, 1, logs.FilterMessage("loop analyzed").Len())
	entry := logs.FilterMessage("loop analyzed").All()[0]
	assert.Equal(t, "pipeline", entry.LoggerName)
	assert.Equal(t, "naca0012", entry.ContextMap()["source"])
}

func TestRunner_Cache(t *testing.T) {
	c, err := cache.New[*pipeline.Result](8)
	require.NoError(t, err)
	r, m, _ := newRunner(t, pipeline.WithCache(c))
	ctx := context.Background()

	first, err := r.Run(ctx, &source.Inline{Label: "a", Points: naca0012()})
	require.NoError(t, err)
	second, err := r.Run(ctx, &source.Inline{Label: "b", Points: naca0012()})
	require.NoError(t, err)

	assert.Equal(t, "b", second.Name)
	assert.Same(t, first.Analysis, second.Analysis)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoopsTotal.WithLabelValues(telemetry.StatusCached)))

	assert.True(t, c.Invalidate(first.Fingerprint))
	third, err := r.Run(ctx, &source.Inline{Label: "c", Points: naca0012()})
	require.NoError(t, err)
	assert.NotSame(t, first.Analysis, third.Analysis)
}

func TestRunner_Failures(t *testing.T) {
	r, m, logs := newRunner(t)
	ctx := context.Background()

	_, err := r.Run(ctx, &source.CoordinateFile{Path: filepath.Join(t.TempDir(), "missing.dat")})
	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageRead, se.Stage)

	_, err = r.Run(ctx, &source.Inline{Label: "pair", Points: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}})
	require.ErrorIs(t, err, geom.ErrDegenerateLoop)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoopsTotal.WithLabelValues(telemetry.StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues(pipeline.StageRead)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues(pipeline.StageNormalize)))
	assert.Equal(t, 2, logs.FilterMessage("loop failed").Len())
}

func TestRunner_Timeout(t *testing.T) {
	r, _, _ := newRunner(t, pipeline.WithTimeout(time.Nanosecond))
	big := geomtest.Symmetric(0.12, 5000).Points()

	_, err := r.Run(context.Background(), &source.Inline{Label: "big", Points: big})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrTimeout)
}

func TestRunner_Batch(t *testing.T) {
	r, m, logs := newRunner(t, pipeline.WithParallelism(2))
	srcs := []source.GeometrySource{
		&source.Inline{Label: "a", Points: naca0012()},
		&source.Inline{Label: "bad", Points: []geom.Point{{X: 0, Y: 0}}},
		&source.Inline{Label: "b", Points: geomtest.NACA4{Camber: 0.02, CamberPos: 0.4, Thickness: 0.12, Half: 80}.Points()},
		&source.Inline{Label: "c", Points: geomtest.Rotate(naca0012(), 17)},
	}

	br := r.Batch(context.Background(), srcs)
	assert.NotEmpty(t, br.RunID)
	require.Len(t, br.Items, len(srcs))
	for i, it := range br.Items {
		assert.Equal(t, i, it.Index)
		assert.Equal(t, srcs[i].Name(), it.Name)
	}

	failed := br.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].Name)
	assert.ErrorIs(t, failed[0].Err, geom.ErrDegenerateLoop)
	assert.Nil(t, failed[0].Result)

	// Rotating the start vertex does not change the descriptors.
	a, c := br.Items[0].Result, br.Items[3].Result
	assert.InDelta(t, a.Descriptors.Value(metrics.ThicknessMax), c.Descriptors.Value(metrics.ThicknessMax), 1e-12)
	assert.Equal(t, a.Analysis.LE(), c.Analysis.LE())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.LoopsTotal.WithLabelValues(telemetry.StatusOK)))
	finished := logs.FilterMessage("batch finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, br.RunID, finished[0].ContextMap()["run_id"])
}

func TestRunner_BatchCancelled(t *testing.T) {
	r, m, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	br := r.Batch(ctx, []source.GeometrySource{
		&source.Inline{Label: "a", Points: naca0012()},
		&source.Inline{Label: "b", Points: naca0012()},
	})
	require.Len(t, br.Failed(), 2)
	for _, it := range br.Items {
		assert.True(t, errors.Is(it.Err, context.Canceled))
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LoopsTotal.WithLabelValues(telemetry.StatusOK)))
}
