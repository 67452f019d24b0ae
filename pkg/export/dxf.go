package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/entity"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/pipeline"
)

// DXF writes the airfoil and the domain boundaries as LWPOLYLINE entities,
// one layer per boundary tag. The airfoil polyline repeats its first vertex
// so it reads back as a closed loop. The file can be fed back through
// source.CADCurve with Layer set to "airfoil".
func DXF(path string, res *pipeline.Result) error {
	d := dxf.NewDrawing()
	d.Header().LtScale = 1.0

	add := func(layer string, c color.ColorNumber, pts []geom.Point) error {
		if _, err := d.AddLayer(layer, c, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("export: dxf: layer %s: %w", layer, err)
		}
		if err := d.ChangeLayer(layer); err != nil {
			return fmt.Errorf("export: dxf: layer %s: %w", layer, err)
		}
		lwp := entity.NewLwPolyline(len(pts))
		for j, p := range pts {
			lwp.Vertices[j] = []float64{p.X, p.Y}
		}
		d.AddEntity(lwp)
		return nil
	}

	loop := res.Loop().Points()
	loop = append(loop, loop[0])
	if err := add("airfoil", color.Red, loop); err != nil {
		return err
	}
	if res.Domain != nil {
		for _, b := range res.Domain.Boundaries {
			if b.Loop != nil {
				continue
			}
			if err := add(b.Tag, color.Blue, []geom.Point{b.From, b.To}); err != nil {
				return err
			}
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("export: dxf: %w", err)
	}
	return nil
}
