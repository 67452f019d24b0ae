package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/source"
)

func pts(xy ...float64) []geom.Point {
	out := make([]geom.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geom.Point{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ---------------------------------------------------------------------------
// Coordinate files
// ---------------------------------------------------------------------------

const selig = `NACA 0012 test section
# comment line
1.0000  0.0000
0.5000, 0.0600   // trailing comment

0.0000	0.0000
0.5000 -0.0600
`

func TestParseCoordinates_Selig(t *testing.T) {
	raw, err := source.ParseCoordinates(context.Background(), strings.NewReader(selig))
	require.NoError(t, err)
	assert.Equal(t, "NACA 0012 test section", raw.Title)
	assert.Equal(t, pts(1, 0, 0.5, 0.06, 0, 0, 0.5, -0.06), raw.Points)
	assert.Nil(t, raw.CurveIDs)
}

func TestParseCoordinates_Lednicer(t *testing.T) {
	const lednicer = `NACA 0012 lednicer
3.  3.

0.0 0.0
0.5 0.06
1.0 0.0

0.0 0.0
0.5 -0.06
1.0 0.0
`
	raw, err := source.ParseCoordinates(context.Background(), strings.NewReader(lednicer))
	require.NoError(t, err)
	assert.Equal(t, pts(1, 0, 0.5, 0.06, 0, 0, 0.5, -0.06, 1, 0), raw.Points)
}

func TestParseCoordinates_Errors(t *testing.T) {
	_, err := source.ParseCoordinates(context.Background(), strings.NewReader("title only\n# nothing\n"))
	assert.True(t, errors.Is(err, source.ErrNoCoordinates))

	_, err = source.ParseCoordinates(context.Background(), strings.NewReader("1 0\n0.5 oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.ParseCoordinates(ctx, strings.NewReader(selig))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCoordinates_DecoratedHeaderAndLatin1(t *testing.T) {
	in := "Profil \xe9tude\n---- upper ----\n1 0\n0 0.1\n0 -0.1\n"
	raw, err := source.ParseCoordinates(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "Profil étude", raw.Title)
	assert.Len(t, raw.Points, 3)
}

func TestCoordinateFile_Read(t *testing.T) {
	path := writeFile(t, "wedge.dat", "1 0\n0 0.1\n0 -0.1\n")
	src := &source.CoordinateFile{Path: path}
	assert.Equal(t, "wedge.dat", src.Name())
	assert.Equal(t, source.KindCoordinateFile, src.Kind())

	raw, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wedge", raw.Title)
	assert.Equal(t, pts(1, 0, 0, 0.1, 0, -0.1), raw.Points)

	_, err = (&source.CoordinateFile{Path: filepath.Join(t.TempDir(), "missing.dat")}).Read(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// ---------------------------------------------------------------------------
// Format detection
// ---------------------------------------------------------------------------

func TestDetectFormat(t *testing.T) {
	iges := strings.Repeat(" ", 72) + "S      1\n"
	tests := []struct {
		name string
		head string
		want source.Format
	}{
		{"naca.dat", "", source.FormatCoordinates},
		{"naca.CSV", "", source.FormatCoordinates},
		{"wing.dxf", "", source.FormatDXF},
		{"wing.STEP", "", source.FormatSTEP},
		{"wing.igs", "", source.FormatIGES},
		{"noext", "ISO-10303-21;\nHEADER;", source.FormatSTEP},
		{"noext", "  0\nSECTION\n  2\nHEADER\n", source.FormatDXF},
		{"noext", iges, source.FormatIGES},
		{"noext", "My airfoil\n1.0 0.0\n", source.FormatCoordinates},
		{"noext", "hello world\n", source.FormatUnknown},
		{"noext", "", source.FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, source.DetectFormat(tt.name, []byte(tt.head)))
		})
	}
}

func TestOpen(t *testing.T) {
	src, err := source.Open(writeFile(t, "a.dat", selig))
	require.NoError(t, err)
	assert.IsType(t, &source.CoordinateFile{}, src)

	src, err = source.Open(writeFile(t, "points", selig))
	require.NoError(t, err)
	assert.Equal(t, source.KindCoordinateFile, src.Kind())

	src, err = source.Open(writeFile(t, "a.dxf", "  0\nSECTION\n  0\nEOF\n"))
	require.NoError(t, err)
	assert.Equal(t, source.KindCADCurve, src.Kind())

	_, err = source.Open(writeFile(t, "a.step", "ISO-10303-21;"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrUnsupportedFormat))
	var ue *source.UnsupportedFormatError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, source.FormatSTEP, ue.Format)

	_, err = source.Open(writeFile(t, "notes", "just prose\n"))
	assert.True(t, errors.Is(err, source.ErrUnsupportedFormat))
}

// ---------------------------------------------------------------------------
// CAD curves
// ---------------------------------------------------------------------------

func TestStitch_JoinsAndReverses(t *testing.T) {
	upper := pts(1, 0, 0.5, 0.06, 0, 0)
	lower := pts(1, 0, 0.5, -0.06, 0, 0) // shares both endpoints, runs the same way

	raw, err := source.Stitch([][]geom.Point{upper, lower}, 1e-9)
	require.NoError(t, err)
	require.Len(t, raw.Points, 5)
	assert.Equal(t, raw.Points[0], raw.Points[4])
	assert.Len(t, raw.CurveIDs, 5)
	assert.Equal(t, 0, raw.CurveIDs[0])
	assert.Equal(t, 1, raw.CurveIDs[4])

	// Drawing order does not matter.
	again, err := source.Stitch([][]geom.Point{lower, upper}, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, raw.Points, again.Points)
}

func TestStitch_Tolerance(t *testing.T) {
	a := pts(0, 0, 1, 0)
	b := pts(1.0000001, 0, 1, 1, 0, 0)

	_, err := source.Stitch([][]geom.Point{a, b}, 1e-9)
	assert.ErrorIs(t, err, source.ErrDisconnected)

	raw, err := source.Stitch([][]geom.Point{a, b}, 1e-6)
	require.NoError(t, err)
	assert.Len(t, raw.Points, 4)
}

func TestStitch_SingleAndEmpty(t *testing.T) {
	raw, err := source.Stitch([][]geom.Point{pts(0, 0), pts(1, 0, 0, 1, 0, 0)}, 1e-9)
	require.NoError(t, err)
	assert.Nil(t, raw.CurveIDs)
	assert.Len(t, raw.Points, 3)

	_, err = source.Stitch(nil, 1e-9)
	assert.ErrorIs(t, err, source.ErrNoCurves)
}

const dxfTwoSurfaces = `  0
SECTION
  2
ENTITIES
  0
LWPOLYLINE
  8
airfoil
 90
3
 70
0
 10
1.0
 20
0.0
 10
0.5
 20
0.06
 10
0.0
 20
0.0
  0
LWPOLYLINE
  8
airfoil
 90
3
 70
0
 10
0.0
 20
0.0
 10
0.5
 20
-0.06
 10
1.0
 20
0.0
  0
ENDSEC
  0
EOF
`

func TestCADCurve_Read(t *testing.T) {
	path := writeFile(t, "section.dxf", dxfTwoSurfaces)
	src := &source.CADCurve{Path: path, Layer: "airfoil"}
	raw, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "airfoil", raw.Title)
	require.Len(t, raw.Points, 5)
	assert.Equal(t, raw.Points[0], raw.Points[4])

	_, err = (&source.CADCurve{Path: path, Layer: "other"}).Read(context.Background())
	assert.ErrorIs(t, err, source.ErrNoCurves)
}

func TestInline(t *testing.T) {
	in := pts(1, 0, 0, 0.1, 0, -0.1)
	src := &source.Inline{Label: "wedge", Points: in}
	raw, err := src.Read(context.Background())
	require.NoError(t, err)
	raw.Points[0].X = 9
	assert.Equal(t, 1.0, in[0].X)
	assert.Equal(t, "inline", src.Kind().String())
}
