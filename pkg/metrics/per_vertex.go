package metrics

import (
	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/topology"
)

// PerVertexScalars holds parallel arrays index-aligned with the analyzed
// loop.
type PerVertexScalars struct {
	ID        []int     `json:"id"`
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	S         []float64 `json:"s"`      // arclength from vertex 0
	SNorm     []float64 `json:"s_norm"` // S divided by the perimeter
	Curvature []float64 `json:"kappa"`  // smoothed signed curvature
	NormalX   []float64 `json:"nx"`
	NormalY   []float64 `json:"ny"`
	Side      []int     `json:"side"` // 0 pressure, 1 suction
	DistLE    []float64 `json:"dist_le"`
	DistTE    []float64 `json:"dist_te"`
}

// Len returns the number of vertices.
func (p *PerVertexScalars) Len() int { return len(p.ID) }

// PerVertex computes the per-vertex scalars for an analysis.
func PerVertex(a *topology.Analysis, opts Options) *PerVertexScalars {
	l := a.Loop
	n := l.Len()
	s := geom.Arclength(l)
	total := s[n]
	kappa := geom.SmoothCircular(geom.CurvatureAll(l, opts.CurvatureWindow), opts.SmoothingWindow)

	out := &PerVertexScalars{
		ID:        make([]int, n),
		X:         make([]float64, n),
		Y:         make([]float64, n),
		S:         make([]float64, n),
		SNorm:     make([]float64, n),
		Curvature: kappa,
		NormalX:   make([]float64, n),
		NormalY:   make([]float64, n),
		Side:      make([]int, n),
		DistLE:    make([]float64, n),
		DistTE:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p := l.At(i)
		nv := geom.Normal(l, i)
		out.ID[i] = i
		out.X[i], out.Y[i] = p.X, p.Y
		out.S[i] = s[i]
		if total > 0 {
			out.SNorm[i] = s[i] / total
		}
		out.NormalX[i], out.NormalY[i] = nv.X, nv.Y
		out.Side[i] = int(a.Split.SideOf(i))
		out.DistLE[i] = geom.AlongLoopDistance(s, i, a.LETE.LE)
		out.DistTE[i] = geom.AlongLoopDistance(s, i, a.LETE.TE)
	}
	return out
}
