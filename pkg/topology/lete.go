package topology

import (
	"math"
	"sort"

	"github.com/chazu/foil/pkg/geom"
)

// LETE holds the leading and trailing edge vertex indices of a loop.
type LETE struct {
	LE int `json:"le"`
	TE int `json:"te"`
}

// DetectLETE locates the leading and trailing edges of a CCW loop. Every
// choice is made from geometry alone, so rotating the loop's starting
// vertex rotates the result with it.
//
// TE: among vertices within eps of the maximum x, the one closest in y to
// the chord reference (mean y of the vertices within eps of the minimum x);
// remaining ties go to the lower vertex, then the more aft one.
//
// LE: the vertex of maximum curvature within LESearchWindow vertices of the
// point farthest from the TE. Tied maxima are resolved according to
// opts.TieBreak; the LE may not coincide with or neighbour the TE.
func DetectLETE(l *geom.Loop, opts Options) (LETE, error) {
	b := l.Bounds()
	eps := opts.Epsilon * geom.Diagonal(b)

	yref := chordReference(l, b.Min.X+eps)
	te := detectTE(l, b.Max.X-eps, yref, eps)
	ext := farthestFrom(l, te, yref, eps)

	le, err := detectLE(l, te, ext, opts)
	if err != nil {
		return LETE{}, err
	}
	return LETE{LE: le, TE: te}, nil
}

// chordReference is the mean y of the vertices at or before xCut.
func chordReference(l *geom.Loop, xCut float64) float64 {
	sum, n := 0.0, 0
	for i := 0; i < l.Len(); i++ {
		if p := l.At(i); p.X <= xCut {
			sum += p.Y
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// better reports whether candidate p beats q given a primary key where
// smaller wins, with ties within eps broken by lower y, then larger x.
func better(pKey, qKey float64, p, q geom.Point, eps float64) bool {
	if math.Abs(pKey-qKey) > eps {
		return pKey < qKey
	}
	if math.Abs(p.Y-q.Y) > eps {
		return p.Y < q.Y
	}
	return p.X > q.X
}

func detectTE(l *geom.Loop, xCut, yref, eps float64) int {
	best := -1
	for i := 0; i < l.Len(); i++ {
		p := l.At(i)
		if p.X < xCut {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		q := l.At(best)
		if better(math.Abs(p.Y-yref), math.Abs(q.Y-yref), p, q, eps) {
			best = i
		}
	}
	return best
}

// farthestFrom returns the vertex farthest from vertex te. Vertices within
// eps of the maximum distance compete on closeness to the chord reference,
// then on lower y.
func farthestFrom(l *geom.Loop, te int, yref, eps float64) int {
	t := l.At(te)
	dmax := 0.0
	for i := 0; i < l.Len(); i++ {
		if i != te {
			dmax = math.Max(dmax, l.At(i).Sub(t).Length())
		}
	}
	best := -1
	for i := 0; i < l.Len(); i++ {
		p := l.At(i)
		if i == te || p.Sub(t).Length() < dmax-eps {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		q := l.At(best)
		if better(math.Abs(p.Y-yref), math.Abs(q.Y-yref), p, q, eps) {
			best = i
		}
	}
	return best
}

// leCandidate is a vertex inside the LE search window. Offset is its signed
// position relative to the extremum.
type leCandidate struct {
	index  int
	offset int
	kappa  float64
}

func detectLE(l *geom.Loop, te, ext int, opts Options) (int, error) {
	n := l.Len()
	w := opts.LESearchWindow
	if w < 0 {
		w = 0
	}
	if w > (n-1)/2 {
		w = (n - 1) / 2
	}

	var cands []leCandidate
	kmax := math.Inf(-1)
	for off := -w; off <= w; off++ {
		i := l.Wrap(ext + off)
		if i == te {
			continue
		}
		k := geom.Curvature(l, i, opts.CurvatureWindow)
		cands = append(cands, leCandidate{index: i, offset: off, kappa: k})
		kmax = math.Max(kmax, k)
	}
	if len(cands) == 0 {
		return 0, &AmbiguousLETEError{Role: "LE", Reason: "no candidates outside the trailing edge"}
	}

	tol := opts.TieTolerance * math.Abs(kmax)
	var tied []leCandidate
	for _, c := range cands {
		if c.kappa >= kmax-tol {
			tied = append(tied, c)
		}
	}
	sort.Slice(tied, func(a, b int) bool { return tied[a].offset < tied[b].offset })

	if opts.TieBreak == TieBreakStrict && clusters(tied) > 1 {
		idx := make([]int, len(tied))
		vals := make([]float64, len(tied))
		for k, c := range tied {
			idx[k], vals[k] = c.index, c.kappa
		}
		return 0, &AmbiguousLETEError{
			Role:      "LE",
			Reason:    "maximum curvature shared by separate locations",
			Indices:   idx,
			Values:    vals,
			Tolerance: tol,
		}
	}

	le := tied[0].index
	if le == l.Next(te) || le == l.Prev(te) {
		return 0, &AmbiguousLETEError{
			Role:      "LE",
			Reason:    "leading edge adjacent to trailing edge",
			Indices:   []int{le, te},
			Values:    []float64{tied[0].kappa},
			Tolerance: tol,
		}
	}
	return le, nil
}

// clusters counts runs of consecutive offsets in a sorted candidate list.
func clusters(cs []leCandidate) int {
	if len(cs) == 0 {
		return 0
	}
	runs := 1
	for k := 1; k < len(cs); k++ {
		if cs[k].offset != cs[k-1].offset+1 {
			runs++
		}
	}
	return runs
}
