package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/foil/pkg/config"
	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/geom/geomtest"
	"github.com/chazu/foil/pkg/pipeline"
	"github.com/chazu/foil/pkg/source"
)

// writeSelig writes a NACA 00xx section in Selig format and returns its
// path.
func writeSelig(t *testing.T, dir, name string, thickness float64) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.ToUpper(name))
	for _, p := range geomtest.Symmetric(thickness, 40).Points() {
		fmt.Fprintf(&b, " %.8f  %.8f\n", p.X, p.Y)
	}
	path := filepath.Join(dir, name+".dat")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func newTestApp(t *testing.T, dir string) (*App, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	app, err := NewApp(config.Default(), nil, reg, dir)
	require.NoError(t, err)
	return app, reg
}

func TestEvaluate_InlineAndFile(t *testing.T) {
	dir := t.TempDir()
	writeSelig(t, dir, "naca0012", 0.12)
	app, reg := newTestApp(t, dir)

	res := app.Evaluate(context.Background(), `
(airfoil "file" :file "naca0012.dat"
         :margins (margins :up 10 :down 10 :front 15 :back 20 :units :chord))
(airfoil "lens" :points (pts 1 0  0.6 0.06  0.2 0.05  0 0  0.2 -0.05  0.6 -0.06))
`)
	require.Empty(t, res.Errors)
	require.Len(t, res.Results, 2)
	assert.NotEmpty(t, res.RunID)
	assert.Zero(t, res.Failed())

	file := res.Results[0]
	assert.Equal(t, "file", file.Name)
	require.NotNil(t, file.Metadata)
	require.NotNil(t, file.Metadata.Domain)
	assert.InDelta(t, -15.0, file.Metadata.Domain.XMin, 1e-6)
	assert.InDelta(t, 21.0, file.Metadata.Domain.XMax, 1e-6)
	assert.Equal(t, "file", file.Result().Name)

	assert.Equal(t, "lens", res.Results[1].Name)
	assert.Equal(t, 6, res.Results[1].Metadata.Points)

	assert.Equal(t, 2.0, testutil.ToFloat64(app.metrics.LoopsTotal.WithLabelValues("ok")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestEvaluate_FailingCaseDoesNotStopOthers(t *testing.T) {
	app, _ := newTestApp(t, t.TempDir())
	res := app.Evaluate(context.Background(), `
(airfoil "pair" :points (pts 0 0 1 0))
(airfoil "lens" :points (pts 1 0  0.6 0.06  0.2 0.05  0 0  0.2 -0.05  0.6 -0.06))
(airfoil "missing" :file "nope.dat")
`)
	require.Empty(t, res.Errors)
	require.Len(t, res.Results, 3)
	assert.Equal(t, 2, res.Failed())

	assert.Equal(t, pipeline.StageNormalize, res.Results[0].Stage)
	assert.Nil(t, res.Results[0].Metadata)
	assert.Nil(t, res.Results[0].Result())
	assert.Empty(t, res.Results[1].Error)
	assert.Equal(t, pipeline.StageRead, res.Results[2].Stage)
}

func TestEvaluate_ScriptErrors(t *testing.T) {
	app, _ := newTestApp(t, "")
	tests := []struct {
		name   string
		script string
	}{
		{"syntax", `(airfoil "a" :points (pts 1 0`},
		{"unknown keyword", `(airfoil "a" :points (pts 1 0 0 1 0 -1) :wing 3)`},
		{"duplicate", `(airfoil "a" :points (pts 1 0 0 1 0 -1)) (airfoil "a" :points (pts 1 0 0 1 0 -1))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := app.Evaluate(context.Background(), tt.script)
			require.NotEmpty(t, res.Errors)
			assert.NotNil(t, res.Results)
			assert.Empty(t, res.Results)
			assert.Empty(t, res.RunID)
		})
	}
}

func TestEvaluate_EmptyScript(t *testing.T) {
	app, _ := newTestApp(t, "")
	res := app.Evaluate(context.Background(), "")
	assert.NotNil(t, res.Results)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Results)
	assert.Empty(t, res.Errors)
}

func TestRunCases_GroupsBySettingsAndKeepsOrder(t *testing.T) {
	app, _ := newTestApp(t, "")
	res := app.Evaluate(context.Background(), `
(airfoil "a" :points (pts 1 0  0.6 0.06  0.2 0.05  0 0  0.2 -0.05  0.6 -0.06))
(airfoil "b" :points (pts 2 0  1.2 0.12  0.4 0.1  0 0  0.4 -0.1  1.2 -0.12) :unit-chord true)
(airfoil "c" :points (pts 1 0  0.6 0.1  0.2 0.08  0 0  0.2 -0.08  0.6 -0.1))
`)
	require.Empty(t, res.Errors)
	require.Len(t, res.Results, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, res.Results[i].Name)
		require.NotNil(t, res.Results[i].Metadata, name)
	}
	assert.True(t, res.Results[1].Metadata.Normalized)
	assert.False(t, res.Results[0].Metadata.Normalized)
}

func TestRunCases_PlainCasesUseConfiguredSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Domain.Back = 30
	app, err := NewApp(cfg, nil, nil, "")
	require.NoError(t, err)

	res := app.Evaluate(context.Background(), `
(airfoil "plain" :points (pts 1 0  0.6 0.06  0.2 0.05  0 0  0.2 -0.05  0.6 -0.06))
(airfoil "short" :points (pts 1 0  0.6 0.06  0.2 0.05  0 0  0.2 -0.05  0.6 -0.06)
         :margins (margins :back 2))
`)
	require.Empty(t, res.Errors)
	require.Len(t, res.Results, 2)
	require.NotNil(t, res.Results[0].Metadata)
	require.NotNil(t, res.Results[1].Metadata)
	assert.InDelta(t, 31.0, res.Results[0].Metadata.Domain.XMax, 1e-9)
	assert.InDelta(t, 3.0, res.Results[1].Metadata.Domain.XMax, 1e-9)
}

func TestBatch_Summary(t *testing.T) {
	dir := t.TempDir()
	thick := writeSelig(t, dir, "naca0015", 0.15)
	thin := writeSelig(t, dir, "naca0009", 0.09)
	app, _ := newTestApp(t, dir)

	var srcs []source.GeometrySource
	for _, p := range []string{thick, thin} {
		src, err := source.Open(p)
		require.NoError(t, err)
		srcs = append(srcs, src)
	}
	br := app.Batch(context.Background(), srcs)
	require.Len(t, br.Items, 2)

	s := Summary(br.Items[0])
	assert.Equal(t, "naca0015.dat", s.Name)
	assert.Equal(t, "NACA0015", s.Metadata.Title)
	assert.Greater(t, *s.Metadata.Descriptors["thickness_max"], *Summary(br.Items[1]).Metadata.Descriptors["thickness_max"])
}

func TestWallDistance(t *testing.T) {
	app, _ := newTestApp(t, "")
	res, err := app.Analyze(context.Background(),
		&source.Inline{Label: "naca", Points: geomtest.Symmetric(0.12, 40).Points()}, app.Base())
	require.NoError(t, err)

	f, err := app.WallDistance(res, 32)
	require.NoError(t, err)
	assert.Equal(t, 32, f.NX)
	assert.Equal(t, "naca", f.Name)
}

func TestNewApp_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Domain.Units = "furlongs"
	_, err := NewApp(cfg, nil, nil, "")
	require.Error(t, err)

	// Registering the same collectors twice fails.
	reg := prometheus.NewRegistry()
	_, err = NewApp(config.Default(), nil, reg, "")
	require.NoError(t, err)
	_, err = NewApp(config.Default(), nil, reg, "")
	require.Error(t, err)
}

func TestNewApp_NoCacheNoMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Size = 0
	app, err := NewApp(cfg, nil, nil, "")
	require.NoError(t, err)
	assert.Nil(t, app.cache)
	assert.Nil(t, app.metrics)
	assert.Equal(t, domain.DefaultOptions(), app.Base().Domain)
}
