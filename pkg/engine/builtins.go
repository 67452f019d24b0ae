package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/source"
	"github.com/chazu/foil/pkg/topology"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script text into something zygomys accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords never
//     need to be bound as globals.
//  2. Kebab-case identifiers become snake case (auto-close -> auto_close),
//     because zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied unchanged.
func preprocessSource(src string) string {
	result := make([]byte, 0, len(src)+len(src)/4)
	b := []byte(src)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '`' {
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			result = append(result, b[i:j]...)
			i = j
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of a name, not
		// a minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

// sexpPoints is the result of (pts x0 y0 x1 y1 ...).
type sexpPoints struct {
	pts []geom.Point
}

func (p *sexpPoints) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pts <%d points>)", len(p.pts))
}
func (p *sexpPoints) Type() *zygo.RegisteredType { return nil }

// sexpMargins is the result of (margins ...).
type sexpMargins struct {
	m      domain.Margins
	units  *domain.Units
	anchor *domain.Anchor
}

func (m *sexpMargins) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(margins :up %g :down %g :front %g :back %g)", m.m.Up, m.m.Down, m.m.Front, m.m.Back)
}
func (m *sexpMargins) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix marks keyword names rewritten by preprocessSource.
const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates keyword pairs from positional arguments. A keyword
// with no value is recorded as a flag holding SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		result.order = append(result.order, name)
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// unknown returns the first keyword not in allowed.
func (a kwArgs) unknown(allowed ...string) (string, bool) {
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	for _, k := range a.order {
		if !ok[k] {
			return k, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func sexpText(s zygo.Sexp) string {
	if s == nil {
		return "nil"
	}
	return s.SexpString(nil)
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, sexpText(s))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, sexpText(s))
}

// toBool accepts true/false. A bare flag keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, sexpText(s))
}

// toKeywordString accepts a keyword (:chord) or a plain string ("chord").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, sexpText(s))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func toStrings(s zygo.Sexp) ([]string, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		str, err := toKeywordString(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, str)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Case collection
// ---------------------------------------------------------------------------

type caseSet struct {
	eng   *Engine
	cases []Case
	names map[string]bool
}

func (cs *caseSet) add(c Case) error {
	if cs.names[c.Name] {
		return fmt.Errorf("duplicate case %q", c.Name)
	}
	cs.names[c.Name] = true
	cs.cases = append(cs.cases, c)
	return nil
}

// fileSource picks a source by extension only. Nothing is read here.
func (cs *caseSet) fileSource(path, layer string, tol float64) (source.GeometrySource, error) {
	if !filepath.IsAbs(path) && cs.eng.baseDir != "" {
		path = filepath.Join(cs.eng.baseDir, path)
	}
	switch f := source.DetectFormat(path, nil); f {
	case source.FormatCoordinates:
		if layer != "" {
			return nil, fmt.Errorf(":layer only applies to DXF files")
		}
		return &source.CoordinateFile{Path: path}, nil
	case source.FormatDXF:
		if tol <= 0 {
			tol = cs.eng.stitchTol
		}
		return &source.CADCurve{Path: path, Layer: layer, Tolerance: tol, Log: cs.eng.log}, nil
	default:
		return nil, &source.UnsupportedFormatError{Path: path, Format: f}
	}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the case script builtins. Declared cases are
// appended to cs. Scripts must go through preprocessSource first so that
// keywords arrive as recognisable strings.
func registerBuiltins(env *zygo.Zlisp, cs *caseSet) {

	// -----------------------------------------------------------------------
	// (pts 1 0  0.5 0.06  0 0  0.5 -0.06)
	// -----------------------------------------------------------------------
	env.AddFunction("pts", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args)%2 != 0 {
			return zygo.SexpNull, fmt.Errorf("pts: odd number of coordinates (%d)", len(args))
		}
		out := &sexpPoints{pts: make([]geom.Point, 0, len(args)/2)}
		for i := 0; i < len(args); i += 2 {
			x, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pts: point %d x: %w", i/2, err)
			}
			y, err := toFloat64(args[i+1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pts: point %d y: %w", i/2, err)
			}
			out.pts = append(out.pts, geom.Point{X: x, Y: y})
		}
		return out, nil
	})

	// -----------------------------------------------------------------------
	// (margins :up 10 :down 10 :front 15 :back 20 :units :chord :anchor :bbox)
	// -----------------------------------------------------------------------
	env.AddFunction("margins", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("margins: unexpected positional argument %s", sexpText(pa.positional[0]))
		}
		if k, bad := pa.unknown("up", "down", "front", "back", "units", "anchor"); bad {
			return zygo.SexpNull, fmt.Errorf("margins: unknown keyword :%s", k)
		}

		out := &sexpMargins{m: domain.DefaultOptions().Margins}
		for _, side := range []struct {
			key string
			dst *float64
		}{
			{"up", &out.m.Up}, {"down", &out.m.Down}, {"front", &out.m.Front}, {"back", &out.m.Back},
		} {
			v, ok := pa.kw[side.key]
			if !ok {
				continue
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("margins: %s: %w", side.key, err)
			}
			*side.dst = f
		}
		if v, ok := pa.kw["units"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("margins: units: %w", err)
			}
			u, err := domain.ParseUnits(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("margins: %w", err)
			}
			out.units = &u
		}
		if v, ok := pa.kw["anchor"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("margins: anchor: %w", err)
			}
			a, err := domain.ParseAnchor(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("margins: %w", err)
			}
			out.anchor = &a
		}
		return out, nil
	})

	// -----------------------------------------------------------------------
	// (airfoil "naca0012" :file "naca0012.dat" :margins (margins ...))
	// (airfoil "lens" :points (pts 1 0  0.5 0.05  0 0  0.5 -0.05) :tie-break :min-index)
	// -----------------------------------------------------------------------
	env.AddFunction("airfoil", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("airfoil: expected exactly one name, got %d positional arguments", len(pa.positional))
		}
		caseName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("airfoil: name: %w", err)
		}
		if strings.TrimSpace(caseName) == "" {
			return zygo.SexpNull, fmt.Errorf("airfoil: name must not be empty")
		}
		fail := func(format string, a ...interface{}) (zygo.Sexp, error) {
			return zygo.SexpNull, fmt.Errorf("airfoil %q: "+format, append([]interface{}{caseName}, a...)...)
		}
		if k, bad := pa.unknown("file", "layer", "tolerance", "points", "margins",
			"auto-close", "epsilon", "unit-chord", "tie-break", "strict", "descriptors"); bad {
			return fail("unknown keyword :%s", k)
		}

		c := Case{Name: caseName}

		fileArg, hasFile := pa.kw["file"]
		ptsArg, hasPts := pa.kw["points"]
		switch {
		case hasFile && hasPts:
			return fail(":file and :points are mutually exclusive")
		case hasPts:
			p, ok := ptsArg.(*sexpPoints)
			if !ok {
				return fail("points: expected (pts ...), got %s", sexpText(ptsArg))
			}
			if _, ok := pa.kw["layer"]; ok {
				return fail(":layer needs :file")
			}
			c.Source = &source.Inline{Label: caseName, Points: append([]geom.Point(nil), p.pts...)}
		case hasFile:
			path, err := toString(fileArg)
			if err != nil {
				return fail("file: %w", err)
			}
			var layer string
			if v, ok := pa.kw["layer"]; ok {
				if layer, err = toString(v); err != nil {
					return fail("layer: %w", err)
				}
			}
			var tol float64
			if v, ok := pa.kw["tolerance"]; ok {
				if tol, err = toFloat64(v); err != nil {
					return fail("tolerance: %w", err)
				}
			}
			if c.Source, err = cs.fileSource(path, layer, tol); err != nil {
				return fail("%w", err)
			}
		default:
			return fail("needs :file or :points")
		}

		o := &c.Overrides
		if v, ok := pa.kw["margins"]; ok {
			m, ok := v.(*sexpMargins)
			if !ok {
				return fail("margins: expected (margins ...), got %s", sexpText(v))
			}
			mm := m.m
			o.Margins, o.Units, o.Anchor = &mm, m.units, m.anchor
		}
		for _, flag := range []struct {
			key string
			dst **bool
		}{
			{"auto-close", &o.AutoClose}, {"unit-chord", &o.UnitChord}, {"strict", &o.Strict},
		} {
			v, ok := pa.kw[flag.key]
			if !ok {
				continue
			}
			b, err := toBool(v)
			if err != nil {
				return fail("%s: %w", flag.key, err)
			}
			*flag.dst = &b
		}
		if v, ok := pa.kw["epsilon"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return fail("epsilon: %w", err)
			}
			if f <= 0 {
				return fail("epsilon must be positive, got %g", f)
			}
			o.Epsilon = &f
		}
		if v, ok := pa.kw["tie-break"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return fail("tie-break: %w", err)
			}
			tb, err := topology.ParseTieBreak(s)
			if err != nil {
				return fail("%w", err)
			}
			o.TieBreak = &tb
		}
		if v, ok := pa.kw["descriptors"]; ok {
			names, err := toStrings(v)
			if err != nil {
				return fail("descriptors: %w", err)
			}
			o.Descriptors = names
		}

		if err := cs.add(c); err != nil {
			return zygo.SexpNull, fmt.Errorf("airfoil: %w", err)
		}
		return &zygo.SexpStr{S: caseName}, nil
	})
}
