package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/chazu/foil/pkg/geom"
)

// ErrNoCoordinates is returned when a coordinate file holds no data rows.
var ErrNoCoordinates = errors.New("no coordinate rows")

// CoordinateFile reads a two-column coordinate text file. Headers, blank
// lines, "#" and "//" comments, and comma or whitespace separators are
// accepted. Both the Selig layout (one pass TE→LE→TE) and the Lednicer
// layout (point counts, then each surface LE→TE) are read.
type CoordinateFile struct {
	Path string
}

var _ GeometrySource = (*CoordinateFile)(nil)

func (s *CoordinateFile) Name() string { return filepath.Base(s.Path) }
func (s *CoordinateFile) Kind() Kind   { return KindCoordinateFile }

func (s *CoordinateFile) Read(ctx context.Context) (*Raw, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", s.Path, err)
	}
	defer f.Close()
	raw, err := ParseCoordinates(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", s.Path, err)
	}
	if raw.Title == "" {
		raw.Title = strings.TrimSuffix(s.Name(), filepath.Ext(s.Path))
	}
	return raw, nil
}

type row struct {
	line int
	p    geom.Point
}

// ParseCoordinates parses coordinate text. The first non-numeric line
// before any data becomes the title.
func ParseCoordinates(ctx context.Context, r io.Reader) (*Raw, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		title string
		rows  []row
		line  int
	)
	for sc.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := strings.TrimSpace(stripComment(sc.Text()))
		if text == "" {
			continue
		}
		if !startsNumeric(text) {
			if title == "" && len(rows) == 0 {
				title = decodeTitle(text)
			}
			continue
		}
		fields := splitFields(text)
		if len(fields) < 2 {
			continue
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			if len(rows) == 0 {
				continue // decorated header such as "--- upper ---"
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row{line: line, p: geom.Point{X: x, Y: y}})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoCoordinates
	}

	if nu, nl, ok := lednicerCounts(rows); ok {
		return &Raw{Title: title, Points: fromLednicer(rows[1:1+nu], rows[1+nu:1+nu+nl])}, nil
	}
	pts := make([]geom.Point, len(rows))
	for i, r := range rows {
		pts[i] = r.p
	}
	return &Raw{Title: title, Points: pts}, nil
}

// lednicerCounts recognises a leading row of two integral point counts
// that add up to the remaining rows.
func lednicerCounts(rows []row) (int, int, bool) {
	if len(rows) < 5 {
		return 0, 0, false
	}
	p := rows[0].p
	if p.X < 2 || p.Y < 2 || p.X != math.Trunc(p.X) || p.Y != math.Trunc(p.Y) {
		return 0, 0, false
	}
	nu, nl := int(p.X), int(p.Y)
	if nu+nl != len(rows)-1 {
		return 0, 0, false
	}
	return nu, nl, true
}

// fromLednicer joins two LE→TE surfaces into one TE→LE→TE pass, dropping
// the shared LE when both surfaces repeat it.
func fromLednicer(upper, lower []row) []geom.Point {
	out := make([]geom.Point, 0, len(upper)+len(lower))
	for i := len(upper) - 1; i >= 0; i-- {
		out = append(out, upper[i].p)
	}
	start := 0
	if lower[0].p == upper[0].p {
		start = 1
	}
	for _, r := range lower[start:] {
		out = append(out, r.p)
	}
	return out
}

func stripComment(s string) string {
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}
	return s
}

func startsNumeric(s string) bool {
	return s != "" && strings.ContainsRune("0123456789-+.", rune(s[0]))
}

func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
}

// parsePair parses a data line, reporting false for headers and short or
// malformed rows.
func parsePair(s string) (geom.Point, bool) {
	s = strings.TrimSpace(s)
	if !startsNumeric(s) {
		return geom.Point{}, false
	}
	f := splitFields(s)
	if len(f) < 2 {
		return geom.Point{}, false
	}
	x, err1 := strconv.ParseFloat(f[0], 64)
	y, err2 := strconv.ParseFloat(f[1], 64)
	if err1 != nil || err2 != nil {
		return geom.Point{}, false
	}
	return geom.Point{X: x, Y: y}, true
}

// decodeTitle reads legacy Latin-1 headers, common in older airfoil
// databases, as UTF-8.
func decodeTitle(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	if out, err := charmap.ISO8859_1.NewDecoder().String(s); err == nil {
		return out
	}
	return strings.ToValidUTF8(s, "?")
}
