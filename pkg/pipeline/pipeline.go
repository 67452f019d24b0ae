// Package pipeline chains the analysis stages for one airfoil: normalize,
// validate, topology, metrics and domain. Analyze is pure. Runner adds
// sources, caching, timeouts, logging and telemetry on top of it, and
// fans batches out over a bounded number of goroutines.
package pipeline

import (
	"fmt"
	"time"

	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/metrics"
	"github.com/chazu/foil/pkg/normalize"
	"github.com/chazu/foil/pkg/topology"
	"github.com/chazu/foil/pkg/validate"
)

// Stage names, used in errors, logs and the stage label of telemetry.
const (
	StageRead      = "read"
	StageNormalize = "normalize"
	StageValidate  = "validate"
	StageTopology  = "topology"
	StageMetrics   = "metrics"
	StageDomain    = "domain"
)

// Config holds the options of every stage.
type Config struct {
	Normalize normalize.Options
	Validate  validate.Options
	// Strict turns blocking validation findings into a failure. Otherwise
	// they are only reported.
	Strict   bool
	Topology topology.Options
	Metrics  metrics.Options
	// Descriptors selects which descriptors to compute. Empty means all.
	Descriptors []string
	// SkipDomain leaves Result.Domain nil.
	SkipDomain bool
	Domain     domain.Options
}

// DefaultConfig returns the defaults of every stage.
func DefaultConfig() Config {
	return Config{
		Normalize: normalize.DefaultOptions(),
		Validate:  validate.DefaultOptions(),
		Topology:  topology.DefaultOptions(),
		Metrics:   metrics.DefaultOptions(),
		Domain:    domain.DefaultOptions(),
	}
}

// Key renders every setting that influences a result. Two configs with the
// same key produce the same result for the same points.
func (c Config) Key() string {
	return fmt.Sprintf("%+v", c)
}

// StageError reports the stage at which a structural failure aborted the
// analysis.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result is everything derived from one point sequence.
type Result struct {
	Name        string
	Title       string
	Fingerprint uint64
	Normalized  *normalize.Result
	Report      validate.Report
	Analysis    *topology.Analysis
	Descriptors *metrics.DescriptorSet
	Scalars     *metrics.PerVertexScalars
	Domain      *domain.Domain
}

// Loop returns the analyzed, counter-clockwise loop.
func (r *Result) Loop() *geom.Loop { return r.Analysis.Loop }

// Analyze runs every stage on raw. Structural failures return a
// *StageError and no result; descriptor failures are recorded in the
// descriptor set.
func Analyze(raw []geom.Point, cfg Config) (*Result, error) {
	return analyze(raw, cfg, nil)
}

// observeFunc receives the start time of each completed stage.
type observeFunc func(stage string, start time.Time)

func analyze(raw []geom.Point, cfg Config, observe observeFunc) (*Result, error) {
	if observe == nil {
		observe = func(string, time.Time) {}
	}
	res := &Result{}

	start := time.Now()
	norm, err := normalize.Normalize(raw, cfg.Normalize)
	if err != nil {
		return nil, &StageError{Stage: StageNormalize, Err: err}
	}
	res.Normalized = norm
	observe(StageNormalize, start)

	start = time.Now()
	res.Report = validate.Loop(norm.Loop, cfg.Validate)
	observe(StageValidate, start)
	if cfg.Strict && !res.Report.OK() {
		return nil, &StageError{Stage: StageValidate, Err: res.Report.Err()}
	}

	start = time.Now()
	an, err := topology.Analyze(norm.Loop, cfg.Topology)
	if err != nil {
		return nil, &StageError{Stage: StageTopology, Err: err}
	}
	res.Analysis = an
	observe(StageTopology, start)

	start = time.Now()
	res.Descriptors = metrics.Compute(an, cfg.Metrics, cfg.Descriptors...)
	res.Scalars = metrics.PerVertex(an, cfg.Metrics)
	observe(StageMetrics, start)

	if cfg.SkipDomain {
		return res, nil
	}
	start = time.Now()
	d, err := domain.Build(an, cfg.Domain)
	if err != nil {
		return nil, &StageError{Stage: StageDomain, Err: err}
	}
	res.Domain = d
	observe(StageDomain, start)
	return res, nil
}
