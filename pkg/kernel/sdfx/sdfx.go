// Package sdfx implements kernel.Kernel with the 2D signed distance
// functions of github.com/deadsy/sdfx.
package sdfx

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/kernel"
)

var _ kernel.Kernel = (*SdfxKernel)(nil)

// MaxCells bounds the size of one sampled field.
const MaxCells = 4 << 20

// sdfxRegion wraps an sdf.SDF2 to implement kernel.Region.
type sdfxRegion struct {
	s sdf.SDF2
}

func (r *sdfxRegion) Bounds() sdf.Box2 { return r.s.BoundingBox() }

func (r *sdfxRegion) Distance(p geom.Point) float64 { return r.s.Evaluate(p) }

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

func New() *SdfxKernel {
	return &SdfxKernel{}
}

func unwrap(r kernel.Region) sdf.SDF2 {
	return r.(*sdfxRegion).s
}

func wrap(s sdf.SDF2) kernel.Region {
	return &sdfxRegion{s: s}
}

// Section builds a polygon region from the loop vertices. The polygon's
// sign test does not depend on orientation.
func (k *SdfxKernel) Section(l *geom.Loop) (kernel.Region, error) {
	if l == nil || l.Len() < 3 {
		return nil, errors.New("sdfx: section needs at least 3 vertices")
	}
	s, err := sdf.Polygon2D(l.Points())
	if err != nil {
		return nil, fmt.Errorf("sdfx: polygon: %w", err)
	}
	return wrap(s), nil
}

// Rect builds a sharp-cornered rectangle. sdf.Box2D is centered on the
// origin so it is moved to the box center.
func (k *SdfxKernel) Rect(b sdf.Box2) (kernel.Region, error) {
	size := b.Max.Sub(b.Min)
	if !(size.X > 0 && size.Y > 0) {
		return nil, fmt.Errorf("sdfx: rectangle has non-positive size %v", size)
	}
	s := sdf.Box2D(size, 0)
	center := b.Min.Add(size.MulScalar(0.5))
	return wrap(sdf.Transform2D(s, sdf.Translate2d(center))), nil
}

func (k *SdfxKernel) Union(a, b kernel.Region) kernel.Region {
	return wrap(sdf.Union2D(unwrap(a), unwrap(b)))
}

func (k *SdfxKernel) Difference(a, b kernel.Region) kernel.Region {
	return wrap(sdf.Difference2D(unwrap(a), unwrap(b)))
}

func (k *SdfxKernel) Translate(r kernel.Region, d geom.Point) kernel.Region {
	return wrap(sdf.Transform2D(unwrap(r), sdf.Translate2d(d)))
}

// Sample evaluates the region at each cell center.
func (k *SdfxKernel) Sample(r kernel.Region, b sdf.Box2, nx, ny int) (*kernel.Field, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("sdfx: grid %dx%d has no cells", nx, ny)
	}
	if nx*ny > MaxCells {
		return nil, fmt.Errorf("sdfx: grid %dx%d exceeds %d cells", nx, ny, MaxCells)
	}
	s := unwrap(r)
	f := &kernel.Field{
		Bounds: b,
		NX:     nx,
		NY:     ny,
		Values: make([]float32, 0, nx*ny),
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			f.Values = append(f.Values, float32(s.Evaluate(f.Center(i, j))))
		}
	}
	return f, nil
}
