package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chazu/foil/pkg/cache"
	"github.com/chazu/foil/pkg/config"
	"github.com/chazu/foil/pkg/engine"
	"github.com/chazu/foil/pkg/export"
	"github.com/chazu/foil/pkg/field"
	"github.com/chazu/foil/pkg/kernel"
	"github.com/chazu/foil/pkg/kernel/sdfx"
	"github.com/chazu/foil/pkg/logging"
	"github.com/chazu/foil/pkg/pipeline"
	"github.com/chazu/foil/pkg/source"
	"github.com/chazu/foil/pkg/telemetry"
)

// App wires configuration, the script engine, the pipeline runners and the
// region kernel. Every command goes through it.
type App struct {
	cfg     *config.Config
	base    pipeline.Config
	engine  *engine.Engine
	kernel  kernel.Kernel
	cache   *cache.Cache[*pipeline.Result]
	metrics *telemetry.Metrics
	log     logging.Logger
}

// CaseData is the JSON form of one analyzed case.
type CaseData struct {
	Name     string           `json:"name"`
	Metadata *export.Metadata `json:"metadata,omitempty"`
	Stage    string           `json:"stage,omitempty"`
	Error    string           `json:"error,omitempty"`

	result *pipeline.Result
}

// EvalErrorData is a script error with its position. Line 0 means the
// position is unknown.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is everything a script run produced. Slices are never nil so
// they encode as [].
type EvalResult struct {
	RunID   string          `json:"run_id,omitempty"`
	Results []CaseData      `json:"results"`
	Errors  []EvalErrorData `json:"errors"`
}

// Failed counts the cases that produced no result.
func (r EvalResult) Failed() int {
	n := 0
	for _, c := range r.Results {
		if c.Error != "" {
			n++
		}
	}
	return n
}

// NewApp builds an App. A nil registerer disables telemetry.
func NewApp(cfg *config.Config, log logging.Logger, reg prometheus.Registerer, baseDir string) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	base, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	log = logging.OrNop(log)

	a := &App{
		cfg:    cfg,
		base:   base,
		engine: engine.NewEngine(engine.WithBaseDir(baseDir), engine.WithLogger(log)),
		kernel: sdfx.New(),
		log:    log,
	}
	if cfg.Cache.Size > 0 {
		if a.cache, err = cache.New[*pipeline.Result](cfg.Cache.Size); err != nil {
			return nil, err
		}
	}
	if reg != nil {
		if a.metrics, err = telemetry.New(reg); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Base returns the pipeline settings derived from the configuration.
func (a *App) Base() pipeline.Config { return a.base }

// Runner returns a runner for cfg sharing the app's cache and telemetry.
// The cache key includes the config, so runners never see each other's
// results for different settings.
func (a *App) Runner(cfg pipeline.Config) *pipeline.Runner {
	return pipeline.NewRunner(cfg,
		pipeline.WithLogger(a.log),
		pipeline.WithCache(a.cache),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithParallelism(a.cfg.Batch.Parallelism),
		pipeline.WithTimeout(a.cfg.Batch.Timeout),
	)
}

// Analyze runs one source with cfg.
func (a *App) Analyze(ctx context.Context, src source.GeometrySource, cfg pipeline.Config) (*pipeline.Result, error) {
	return a.Runner(cfg).Run(ctx, src)
}

// Batch runs every source with the base settings.
func (a *App) Batch(ctx context.Context, srcs []source.GeometrySource) *pipeline.BatchResult {
	return a.Runner(a.base).Batch(ctx, srcs)
}

// WallDistance samples the fluid region of res.
func (a *App) WallDistance(res *pipeline.Result, resolution int) (*kernel.Field, error) {
	opts := field.DefaultOptions()
	if resolution > 0 {
		opts.Resolution = resolution
	}
	return field.WallDistance(a.kernel, res, opts)
}

// Evaluate runs a case script and analyzes every case it declares. Script
// errors stop before any analysis; a failing case never stops the others.
func (a *App) Evaluate(ctx context.Context, script string) EvalResult {
	result := EvalResult{
		Results: []CaseData{},
		Errors:  []EvalErrorData{},
	}

	cases, evalErrs, err := a.engine.Evaluate(script)
	if err != nil {
		a.log.Error("script failed", logging.Err(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	result.RunID, result.Results = a.RunCases(ctx, cases)
	return result
}

// RunCases analyzes cases in declaration order. Cases sharing the same
// effective settings run as one batch.
func (a *App) RunCases(ctx context.Context, cases []engine.Case) (string, []CaseData) {
	out := make([]CaseData, len(cases))

	type group struct {
		cfg     pipeline.Config
		indices []int
	}
	var order []string
	groups := map[string]*group{}
	baseKey := a.base.Key()
	for i, c := range cases {
		cfg, key := a.base, baseKey
		if !c.Overrides.Empty() {
			cfg = c.Overrides.Apply(a.base)
			key = cfg.Key()
		}
		g, ok := groups[key]
		if !ok {
			g = &group{cfg: cfg}
			groups[key] = g
			order = append(order, key)
		}
		g.indices = append(g.indices, i)
	}

	var runID string
	for _, key := range order {
		g := groups[key]
		srcs := make([]source.GeometrySource, len(g.indices))
		for k, i := range g.indices {
			srcs[k] = cases[i].Source
		}
		br := a.Runner(g.cfg).Batch(ctx, srcs)
		if runID == "" {
			runID = br.RunID
		}
		for k, it := range br.Items {
			i := g.indices[k]
			out[i] = caseData(cases[i].Name, it.Result, it.Err)
		}
	}
	return runID, out
}

func caseData(name string, res *pipeline.Result, err error) CaseData {
	cd := CaseData{Name: name}
	if err != nil {
		cd.Error = err.Error()
		var se *pipeline.StageError
		if errors.As(err, &se) {
			cd.Stage = se.Stage
		}
		return cd
	}
	res.Name = name
	cd.Metadata = export.MetadataOf(res, nil)
	cd.result = res
	return cd
}

// Result returns the pipeline result behind cd, or nil when it failed.
func (cd CaseData) Result() *pipeline.Result { return cd.result }

// Summary describes a batch item the same way Evaluate describes a case.
func Summary(it pipeline.Item) CaseData {
	return caseData(it.Name, it.Result, it.Err)
}

// errFailed reports how many of n items failed.
func errFailed(failed, n int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d failed", failed, n)
}
