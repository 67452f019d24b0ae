package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/pipeline"
)

// Gmsh entity ids. Airfoil points are numbered from 1; the box uses a
// separate range so the two never collide for loops below 1000 points.
const (
	geoAirfoilCurve = 1
	geoBoxFirst     = 1001
	geoBoxLoop      = 100
	geoSurface      = 100
)

// metaBegin and metaEnd delimit the commented JSON block in a .geo file.
const (
	metaBegin = "// @foil:meta BEGIN"
	metaEnd   = "// @foil:meta END"
)

// GeoOptions controls .geo output.
type GeoOptions struct {
	// Metadata embeds the compact JSON summary as a comment block.
	Metadata   bool
	Provenance map[string]string
}

// Geo writes a geometry-only Gmsh script: the airfoil as one closed spline,
// the far-field box as four lines, the fluid surface between them and one
// physical group per boundary tag.
func Geo(w io.Writer, res *pipeline.Result, opts GeoOptions) error {
	if res.Domain == nil {
		return ErrNoDomain
	}
	var b bytes.Buffer

	if opts.Metadata {
		js, err := MetadataOf(res, opts.Provenance).JSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s\n// %s\n%s\n\n", metaBegin, js, metaEnd)
	}

	pts := res.Loop().Points()
	if len(pts) >= geoBoxFirst {
		return fmt.Errorf("export: geo: %d airfoil points collide with box ids from %d", len(pts), geoBoxFirst)
	}

	b.WriteString("// --- Airfoil Points ---\n")
	ids := make([]string, 0, len(pts)+1)
	for i, p := range pts {
		fmt.Fprintf(&b, "Point(%d) = { %s, %s, 0 };\n", i+1, num(p.X), num(p.Y))
		ids = append(ids, strconv.Itoa(i+1))
	}
	// Close the spline on the same point id.
	ids = append(ids, "1")
	fmt.Fprintf(&b, "\nSpline(%d) = { %s };\n", geoAirfoilCurve, strings.Join(ids, ", "))
	fmt.Fprintf(&b, "Curve Loop(%d) = {%d};\n\n", geoAirfoilCurve, geoAirfoilCurve)

	b.WriteString("// --- Farfield Box ---\n")
	for i, c := range res.Domain.Corners() {
		fmt.Fprintf(&b, "Point(%d) = { %s, %s, 0 };\n", geoBoxFirst+i, num(c.X), num(c.Y))
	}
	lineOf := map[string]int{}
	for i, tag := range []string{domain.TagBottom, domain.TagOutlet, domain.TagTop, domain.TagInlet} {
		id := geoBoxFirst + i
		fmt.Fprintf(&b, "Line(%d) = {%d, %d}; // %s\n", id, id, geoBoxFirst+(i+1)%4, tag)
		lineOf[tag] = id
	}
	fmt.Fprintf(&b, "Curve Loop(%d) = {%d, %d, %d, %d};\n", geoBoxLoop, geoBoxFirst, geoBoxFirst+1, geoBoxFirst+2, geoBoxFirst+3)
	fmt.Fprintf(&b, "Plane Surface(%d) = {%d, %d}; // box minus airfoil\n\n", geoSurface, geoBoxLoop, geoAirfoilCurve)

	b.WriteString("// --- Physical Groups ---\n")
	for _, bd := range res.Domain.Boundaries {
		id, ok := lineOf[bd.Tag]
		if bd.Kind == domain.Wall {
			id, ok = geoAirfoilCurve, true
		}
		if !ok {
			return fmt.Errorf("export: geo: no curve for boundary %q", bd.Tag)
		}
		fmt.Fprintf(&b, "Physical Line(%q) = {%d};\n", bd.Tag, id)
	}
	fmt.Fprintf(&b, "Physical Surface(\"fluid\") = {%d};\n", geoSurface)

	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("export: geo: %w", err)
	}
	return nil
}

// num formats with 16 significant digits, enough to round-trip through
// Gmsh's parser without visible noise.
func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 16, 64)
}

// ReadGeoMetadata extracts the embedded JSON block from .geo text, or
// returns nil when there is none.
func ReadGeoMetadata(geo string) []byte {
	start := strings.Index(geo, metaBegin)
	if start < 0 {
		return nil
	}
	rest := geo[start+len(metaBegin):]
	end := strings.Index(rest, metaEnd)
	if end < 0 {
		return nil
	}
	body := strings.TrimSpace(rest[:end])
	return []byte(strings.TrimSpace(strings.TrimPrefix(body, "//")))
}
