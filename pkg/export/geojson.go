package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/pipeline"
)

// GeoJSON builds a feature collection holding the airfoil polygon with its
// descriptors as properties, the LE and TE points, both surfaces and, when
// present, the tagged domain boundaries. Coordinates are the loop's own;
// nothing is projected.
func GeoJSON(res *pipeline.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	a := res.Analysis

	foil := geojson.NewFeature(orb.Polygon{a.Loop.Ring()})
	foil.Properties["tag"] = domain.TagAirfoil
	foil.Properties["name"] = res.Name
	foil.Properties["kind"] = domain.Wall.String()
	for _, name := range res.Descriptors.Names() {
		if v, ok := res.Descriptors.Get(name); ok {
			foil.Properties[name] = v
		} else {
			foil.Properties[name] = nil
		}
	}
	fc.Append(foil)

	for _, pt := range []struct {
		role string
		idx  int
	}{{"LE", a.LETE.LE}, {"TE", a.LETE.TE}} {
		f := geojson.NewFeature(geom.ToOrb(a.Loop.At(pt.idx)))
		f.Properties["role"] = pt.role
		f.Properties["index"] = pt.idx
		fc.Append(f)
	}

	for _, side := range []struct {
		role string
		r    rangeOf
	}{
		{"suction", rangeOf{a.Split.Suction.Start, a.Split.Suction.End}},
		{"pressure", rangeOf{a.Split.Pressure.Start, a.Split.Pressure.End}},
	} {
		f := geojson.NewFeature(a.Loop.LineString(side.r.start, side.r.end))
		f.Properties["role"] = side.role
		fc.Append(f)
	}

	if res.Domain == nil {
		return fc
	}
	for _, b := range res.Domain.Boundaries {
		if b.Kind == domain.Wall {
			continue
		}
		f := geojson.NewFeature(orb.LineString{geom.ToOrb(b.From), geom.ToOrb(b.To)})
		f.Properties["tag"] = b.Tag
		f.Properties["kind"] = b.Kind.String()
		fc.Append(f)
	}
	return fc
}

type rangeOf struct{ start, end int }

// MarshalGeoJSON encodes GeoJSON(res).
func MarshalGeoJSON(res *pipeline.Result) ([]byte, error) {
	b, err := GeoJSON(res).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export: geojson: %w", err)
	}
	return b, nil
}
