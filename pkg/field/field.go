// Package field samples the signed wall distance of the fluid region
// around analyzed airfoils using a region kernel. One field is produced per
// result.
package field

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/kernel"
	"github.com/chazu/foil/pkg/pipeline"
)

// DefaultResolution is the number of cells across the wider side of the
// sampled box.
const DefaultResolution = 200

// Options controls sampling.
type Options struct {
	// Resolution is the cell count along the wider side. The other side
	// gets as many cells as keep the cells square.
	Resolution int
	// Padding surrounds the loop bounding box, in chords, when the result
	// has no domain.
	Padding float64
}

func DefaultOptions() Options {
	return Options{Resolution: DefaultResolution, Padding: 0.5}
}

// WallDistance samples the fluid region of res: the domain rectangle, or
// the padded bounding box when there is no domain, minus the airfoil.
// Values are negative in the fluid and positive inside the airfoil or
// beyond the far field.
func WallDistance(k kernel.Kernel, res *pipeline.Result, opts Options) (*kernel.Field, error) {
	if res == nil || res.Analysis == nil {
		return nil, fmt.Errorf("field: result has no analysis")
	}
	if opts.Resolution < 1 {
		return nil, fmt.Errorf("field: resolution must be positive, got %d", opts.Resolution)
	}

	box := boxOf(res, opts.Padding)
	foil, err := k.Section(res.Loop())
	if err != nil {
		return nil, fmt.Errorf("field: %s: %w", res.Name, err)
	}
	rect, err := k.Rect(box)
	if err != nil {
		return nil, fmt.Errorf("field: %s: %w", res.Name, err)
	}

	nx, ny := gridOf(box, opts.Resolution)
	f, err := k.Sample(k.Difference(rect, foil), box, nx, ny)
	if err != nil {
		return nil, fmt.Errorf("field: %s: %w", res.Name, err)
	}
	f.Name = res.Name
	return f, nil
}

// Fields samples every result in order. A nil entry yields a nil field so
// indices line up with a batch.
func Fields(k kernel.Kernel, results []*pipeline.Result, opts Options) ([]*kernel.Field, error) {
	out := make([]*kernel.Field, len(results))
	for i, res := range results {
		if res == nil {
			continue
		}
		f, err := WallDistance(k, res, opts)
		if err != nil {
			return nil, fmt.Errorf("field: item %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func boxOf(res *pipeline.Result, padding float64) sdf.Box2 {
	if res.Domain != nil {
		return res.Domain.Rect
	}
	b := res.Loop().Bounds()
	pad := padding * res.Analysis.Chord()
	// A padding of zero still needs room for the boundary itself.
	pad = math.Max(pad, 1e-3*geom.Diagonal(b))
	return sdf.Box2{
		Min: geom.Point{X: b.Min.X - pad, Y: b.Min.Y - pad},
		Max: geom.Point{X: b.Max.X + pad, Y: b.Max.Y + pad},
	}
}

func gridOf(b sdf.Box2, resolution int) (nx, ny int) {
	w := b.Max.X - b.Min.X
	h := b.Max.Y - b.Min.Y
	if w >= h {
		return resolution, max(1, int(math.Round(float64(resolution)*h/w)))
	}
	return max(1, int(math.Round(float64(resolution)*w/h))), resolution
}
