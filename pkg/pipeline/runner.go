package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/foil/pkg/cache"
	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/logging"
	"github.com/chazu/foil/pkg/source"
	"github.com/chazu/foil/pkg/telemetry"
)

// ErrTimeout is returned when one analysis exceeds the runner's timeout.
var ErrTimeout = errors.New("analysis timed out")

// Runner reads sources and analyzes them with a fixed Config. A Runner is
// safe for concurrent use; its cache is its own.
type Runner struct {
	cfg         Config
	key         string
	log         logging.Logger
	cache       *cache.Cache[*Result]
	metrics     *telemetry.Metrics
	parallelism int
	timeout     time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.log = logging.OrNop(l) }
}

// WithCache memoizes results by the fingerprint of the raw points and the
// config key.
func WithCache(c *cache.Cache[*Result]) Option {
	return func(r *Runner) { r.cache = c }
}

// WithMetrics records telemetry. A nil *telemetry.Metrics records nothing.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithParallelism bounds the number of concurrent analyses in Batch.
// Values below one mean GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(r *Runner) { r.parallelism = n }
}

// WithTimeout bounds the analysis of a single source. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// NewRunner returns a runner for cfg.
func NewRunner(cfg Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, key: cfg.Key(), log: logging.NewNop()}
	for _, o := range opts {
		o(r)
	}
	if r.parallelism < 1 {
		r.parallelism = runtime.GOMAXPROCS(0)
	}
	r.log = r.log.Named("pipeline")
	return r
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run reads src and analyzes it. A cached result for identical points is
// returned without recomputation.
func (r *Runner) Run(ctx context.Context, src source.GeometrySource) (*Result, error) {
	log := r.log.With(
		logging.String("source", src.Name()),
		logging.String("kind", src.Kind().String()),
	)

	start := time.Now()
	raw, err := src.Read(ctx)
	if err != nil {
		return nil, r.fail(log, &StageError{Stage: StageRead, Err: err})
	}
	r.metrics.Observe(StageRead, start)

	fp := cache.Key(raw.Points, r.key)
	if r.cache != nil {
		cached, ok := r.cache.Get(fp)
		r.metrics.CacheLookup(ok)
		if ok {
			r.metrics.Loop(telemetry.StatusCached)
			log.Debug("cache hit", logging.Any("fingerprint", fp))
			res := *cached
			res.Name, res.Title = src.Name(), raw.Title
			return &res, nil
		}
	}

	res, err := r.analyze(ctx, raw.Points)
	if err != nil {
		return nil, r.fail(log, err)
	}
	res.Name = src.Name()
	res.Title = raw.Title
	res.Fingerprint = fp
	if r.cache != nil {
		r.cache.Add(fp, res)
	}

	r.record(res)
	log.Info("loop analyzed",
		logging.Int("points", len(raw.Points)),
		logging.Int("vertices", res.Analysis.Loop.Len()),
		logging.Bool("flipped", res.Analysis.Flipped),
		logging.Int("errors", len(res.Report.Errors)),
		logging.Int("warnings", len(res.Report.Warnings)),
		logging.Int("missing_descriptors", len(res.Descriptors.Missing())),
		logging.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

type analyzeResult struct {
	res *Result
	err error
}

// analyze runs the stages in a goroutine so that a timeout or a cancelled
// context returns promptly. On timeout the goroutine may still be running;
// its result is dropped into the buffered channel and discarded.
func (r *Runner) analyze(ctx context.Context, raw []geom.Point) (*Result, error) {
	ch := make(chan analyzeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- analyzeResult{err: fmt.Errorf("pipeline: panic during analysis: %v", p)}
			}
		}()
		res, err := analyze(raw, r.cfg, r.metrics.Observe)
		ch <- analyzeResult{res: res, err: err}
	}()

	var expired <-chan time.Time
	if r.timeout > 0 {
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case out := <-ch:
		return out.res, out.err
	case <-expired:
		return nil, fmt.Errorf("pipeline: %w after %s", ErrTimeout, r.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runner) record(res *Result) {
	r.metrics.Loop(telemetry.StatusOK)
	r.metrics.Missing(res.Descriptors.Missing()...)
	for _, f := range res.Report.Errors {
		r.metrics.Finding(f.Severity.String(), f.Code)
	}
	for _, f := range res.Report.Warnings {
		r.metrics.Finding(f.Severity.String(), f.Code)
	}
}

func (r *Runner) fail(log logging.Logger, err error) error {
	stage := "unknown"
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	r.metrics.Loop(telemetry.StatusFailed)
	r.metrics.Failure(stage)
	log.Warn("loop failed", logging.String("stage", stage), logging.Err(err))
	return err
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

// Item is the outcome for one source of a batch. Exactly one of Result and
// Err is set.
type Item struct {
	Index  int
	Name   string
	Result *Result
	Err    error
}

// BatchResult holds one item per source, in input order.
type BatchResult struct {
	RunID string
	Items []Item
}

// Failed returns the items that did not produce a result.
func (b *BatchResult) Failed() []Item {
	var out []Item
	for _, it := range b.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Batch analyzes every source with at most the configured parallelism.
// One failing source never stops the others. When ctx is cancelled no new
// sources are started and the unstarted items carry ctx.Err().
func (r *Runner) Batch(ctx context.Context, srcs []source.GeometrySource) *BatchResult {
	br := &BatchResult{RunID: uuid.NewString(), Items: make([]Item, len(srcs))}
	log := r.log.With(logging.String("run_id", br.RunID))
	log.Info("batch started",
		logging.Int("sources", len(srcs)),
		logging.Int("parallelism", r.parallelism),
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, src := range srcs {
		br.Items[i] = Item{Index: i, Name: src.Name()}
		if err := ctx.Err(); err != nil {
			br.Items[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				br.Items[i].Err = err
				return nil
			}
			res, err := r.Run(ctx, src)
			br.Items[i].Result, br.Items[i].Err = res, err
			return nil
		})
	}
	_ = g.Wait()

	log.Info("batch finished",
		logging.Int("failed", len(br.Failed())),
		logging.Duration("elapsed", time.Since(start)),
	)
	return br
}
