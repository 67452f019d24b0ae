// Package engine evaluates case scripts: small Lisp programs that declare
// the airfoils to analyze, where their geometry comes from and which
// settings differ from the base configuration. Scripts run in a fresh
// zygomys sandbox per evaluation and cannot touch the filesystem; file
// paths are only recorded and read later by the pipeline.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/foil/pkg/logging"
)

// EvalError is a non-fatal script error, such as a parse error, an
// unknown symbol or a bad builtin argument.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates case scripts. Each call to Evaluate gets its own
// sandbox. When calls overlap, only the most recent one returns its cases;
// older ones fail as superseded.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	baseDir   string
	timeout   time.Duration
	stitchTol float64
	log       logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBaseDir resolves relative :file paths against dir.
func WithBaseDir(dir string) Option { return func(e *Engine) { e.baseDir = dir } }

// WithEvalTimeout replaces EvalTimeout.
func WithEvalTimeout(d time.Duration) Option { return func(e *Engine) { e.timeout = d } }

// WithStitchTolerance sets the default DXF stitch tolerance for cases that
// do not give :tolerance.
func WithStitchTolerance(tol float64) Option { return func(e *Engine) { e.stitchTol = tol } }

// WithLogger sets the logger handed to the sources a script creates.
func WithLogger(l logging.Logger) Option { return func(e *Engine) { e.log = logging.OrNop(l) } }

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, log: logging.NewNop()}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.Named("engine")
	return e
}

// Evaluate runs a script and returns the cases it declares, in order.
//
// Return semantics:
//   - On success: cases + nil errors + nil error
//   - On parse/eval failure: nil cases + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
func (e *Engine) Evaluate(src string) ([]Case, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		cases, evalErrs, err := e.evaluate(src)
		ch <- evalResult{cases: cases, errors: evalErrs, err: err}
	}()

	start := time.Now()
	cases, evalErrs, err := waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
	e.log.Debug("script evaluated",
		logging.Int("cases", len(cases)),
		logging.Int("eval_errors", len(evalErrs)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return cases, evalErrs, err
}

func (e *Engine) evaluate(src string) ([]Case, []EvalError, error) {
	// Empty source is a valid script with no cases.
	if strings.TrimSpace(src) == "" {
		return []Case{}, nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	cs := &caseSet{eng: e, names: map[string]bool{}}
	registerBuiltins(env, cs)

	if err := env.LoadString(preprocessSource(src)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if cs.cases == nil {
		return []Case{}, nil, nil
	}
	return cs.cases, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, extracting a
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
