package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rpaloschi/dxf-go/document"
	"github.com/rpaloschi/dxf-go/entities"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/logging"
)

// DefaultStitchTolerance is the endpoint distance under which two CAD
// curves are joined.
const DefaultStitchTolerance = 1e-6

var (
	// ErrNoCurves is returned when a drawing holds no usable polylines.
	ErrNoCurves = errors.New("no polylines found")
	// ErrDisconnected is returned when curves cannot be chained end to end.
	ErrDisconnected = errors.New("curves do not form a single chain")
)

// CADCurve reads the airfoil outline from DXF POLYLINE and LWPOLYLINE
// entities. Several curves, for example separate upper and lower surfaces,
// are stitched end to end.
type CADCurve struct {
	Path string
	// Layer restricts reading to one layer. Empty reads every layer.
	Layer     string
	Tolerance float64
	Log       logging.Logger
}

var _ GeometrySource = (*CADCurve)(nil)

func (s *CADCurve) Name() string { return filepath.Base(s.Path) }
func (s *CADCurve) Kind() Kind   { return KindCADCurve }

func (s *CADCurve) Read(ctx context.Context) (*Raw, error) {
	log := logging.OrNop(s.Log).Named("source.dxf")
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", s.Path, err)
	}
	defer f.Close()

	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultStitchTolerance
	}
	raw, err := ParseDXF(ctx, f, s.Layer, tol)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", s.Path, err)
	}
	log.Debug("dxf outline read",
		logging.String("path", s.Path),
		logging.String("layer", s.Layer),
		logging.Int("points", len(raw.Points)),
		logging.Int("curves", curveCount(raw)),
	)
	if raw.Title == "" {
		raw.Title = strings.TrimSuffix(s.Name(), filepath.Ext(s.Path))
	}
	return raw, nil
}

type curve struct {
	layer string
	pts   []geom.Point
}

// ParseDXF collects polylines from the ENTITIES section, or from block
// definitions when the section has none, and stitches them into one
// point sequence.
func ParseDXF(ctx context.Context, r io.Reader, layer string, tol float64) (*Raw, error) {
	doc, err := document.DxfDocumentFromStream(r)
	if err != nil {
		return nil, fmt.Errorf("parse dxf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var curves []curve
	for _, e := range doc.Entities.Entities {
		if c, ok := curveOf(e, layer); ok {
			curves = append(curves, c)
		}
	}
	if len(curves) == 0 {
		for _, b := range doc.Blocks {
			for _, e := range b.Entities {
				if c, ok := curveOf(e, layer); ok {
					curves = append(curves, c)
				}
			}
		}
	}
	if len(curves) == 0 {
		if layer != "" {
			return nil, fmt.Errorf("%w on layer %q", ErrNoCurves, layer)
		}
		return nil, ErrNoCurves
	}

	pts := make([][]geom.Point, len(curves))
	for i, c := range curves {
		pts[i] = c.pts
	}
	raw, err := Stitch(pts, tol)
	if err != nil {
		return nil, err
	}
	if layer != "" {
		raw.Title = layer
	} else if len(curves) == 1 {
		raw.Title = curves[0].layer
	}
	return raw, nil
}

func curveOf(e interface{}, layer string) (curve, bool) {
	var c curve
	switch v := e.(type) {
	case *entities.Polyline:
		c.layer = v.LayerName
		for _, vx := range v.Vertices {
			c.pts = append(c.pts, geom.Point{X: vx.Location.X, Y: vx.Location.Y})
		}
	case *entities.LWPolyline:
		c.layer = v.LayerName
		for _, p := range v.Points {
			c.pts = append(c.pts, geom.Point{X: p.Point.X, Y: p.Point.Y})
		}
	default:
		return curve{}, false
	}
	if layer != "" && !strings.EqualFold(c.layer, layer) {
		return curve{}, false
	}
	return c, len(c.pts) >= 2
}

// ---------------------------------------------------------------------------
// Stitching
// ---------------------------------------------------------------------------

// Stitch chains curves whose endpoints lie within tol of each other into a
// single sequence, reversing curves as needed. Curves are first put in a
// canonical order so the result does not depend on drawing order. Each
// output point records the curve it came from.
func Stitch(curves [][]geom.Point, tol float64) (*Raw, error) {
	var cs [][]geom.Point
	for _, c := range curves {
		if len(c) >= 2 {
			cs = append(cs, c)
		}
	}
	if len(cs) == 0 {
		return nil, ErrNoCurves
	}
	sort.SliceStable(cs, func(i, j int) bool { return curveLess(cs[i], cs[j]) })
	if len(cs) == 1 {
		return &Raw{Points: append([]geom.Point(nil), cs[0]...)}, nil
	}

	used := make([]bool, len(cs))
	used[0] = true
	pts := append([]geom.Point(nil), cs[0]...)
	ids := make([]int, len(pts))

	for joined := 1; joined < len(cs); joined++ {
		end := pts[len(pts)-1]
		next, reverse := -1, false
		for j, c := range cs {
			if used[j] {
				continue
			}
			if c[0].Sub(end).Length() <= tol {
				next = j
				break
			}
			if c[len(c)-1].Sub(end).Length() <= tol {
				next, reverse = j, true
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("%w: %d of %d curves joined", ErrDisconnected, joined, len(cs))
		}
		used[next] = true
		c := cs[next]
		if reverse {
			for k := len(c) - 2; k >= 0; k-- {
				pts = append(pts, c[k])
				ids = append(ids, next)
			}
		} else {
			for _, p := range c[1:] {
				pts = append(pts, p)
				ids = append(ids, next)
			}
		}
	}
	return &Raw{Points: pts, CurveIDs: ids}, nil
}

// curveLess orders curves lexicographically by their points, shorter
// prefixes first.
func curveLess(a, b []geom.Point) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k].X != b[k].X {
			return a[k].X < b[k].X
		}
		if a[k].Y != b[k].Y {
			return a[k].Y < b[k].Y
		}
	}
	return len(a) < len(b)
}

func curveCount(r *Raw) int {
	if r.CurveIDs == nil {
		return 1
	}
	seen := map[int]bool{}
	for _, id := range r.CurveIDs {
		seen[id] = true
	}
	return len(seen)
}
