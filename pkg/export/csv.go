package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/chazu/foil/pkg/kernel"
	"github.com/chazu/foil/pkg/metrics"
)

// ScalarsHeader is the column order of ScalarsCSV. Ids are 1-based to
// match the point ids of the .geo output.
var ScalarsHeader = []string{
	"id", "x", "y", "s", "kappa_smooth", "side", "dist_LE_curve", "dist_TE_curve", "nx", "ny",
}

// ScalarsCSV writes one row per vertex.
func ScalarsCSV(w io.Writer, pv *metrics.PerVertexScalars) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScalarsHeader); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	row := make([]string, len(ScalarsHeader))
	for i := 0; i < pv.Len(); i++ {
		row[0] = strconv.Itoa(pv.ID[i] + 1)
		row[1] = float(pv.X[i])
		row[2] = float(pv.Y[i])
		row[3] = float(pv.SNorm[i])
		row[4] = float(pv.Curvature[i])
		row[5] = strconv.Itoa(pv.Side[i])
		row[6] = float(pv.DistLE[i])
		row[7] = float(pv.DistTE[i])
		row[8] = float(pv.NormalX[i])
		row[9] = float(pv.NormalY[i])
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: csv: row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	return nil
}

func float(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// FieldCSV writes one row per cell with its center: x, y, value.
func FieldCSV(w io.Writer, f *kernel.Field) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y", "value"}); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	for j := 0; j < f.NY; j++ {
		for i := 0; i < f.NX; i++ {
			c := f.Center(i, j)
			if err := cw.Write([]string{float(c.X), float(c.Y), float(float64(f.At(i, j)))}); err != nil {
				return fmt.Errorf("export: csv: cell %d,%d: %w", i, j, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	return nil
}
