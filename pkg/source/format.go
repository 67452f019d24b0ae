package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is a detected geometry file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCoordinates
	FormatDXF
	FormatSTEP
	FormatIGES
)

func (f Format) String() string {
	switch f {
	case FormatCoordinates:
		return "coordinates"
	case FormatDXF:
		return "dxf"
	case FormatSTEP:
		return "step"
	case FormatIGES:
		return "iges"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat is matched by UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported geometry format")

// UnsupportedFormatError reports a file whose format was recognised but
// cannot be read, or was not recognised at all.
type UnsupportedFormatError struct {
	Path   string
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == FormatUnknown {
		return fmt.Sprintf("unsupported geometry format: %s", e.Path)
	}
	return fmt.Sprintf("unsupported geometry format: %s (%s needs a CAD kernel; export the section as DXF or coordinates)", e.Path, e.Format)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

var extensions = map[string]Format{
	".dat":  FormatCoordinates,
	".txt":  FormatCoordinates,
	".xy":   FormatCoordinates,
	".csv":  FormatCoordinates,
	".dxf":  FormatDXF,
	".stp":  FormatSTEP,
	".step": FormatSTEP,
	".igs":  FormatIGES,
	".iges": FormatIGES,
}

// sniffLen is how many leading bytes DetectFormat inspects.
const sniffLen = 512

// DetectFormat picks a format from the file extension, falling back to the
// leading bytes of the content when the extension is missing or unknown.
func DetectFormat(name string, head []byte) Format {
	if f, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	trimmed := bytes.TrimSpace(head)
	switch {
	case len(trimmed) == 0:
		return FormatUnknown
	case bytes.HasPrefix(trimmed, []byte("ISO-10303-21")):
		return FormatSTEP
	case isDXF(trimmed):
		return FormatDXF
	case isIGES(head):
		return FormatIGES
	case hasNumericLine(head):
		return FormatCoordinates
	}
	return FormatUnknown
}

// isDXF matches the group code 0 / SECTION pair that opens every DXF.
func isDXF(b []byte) bool {
	lines := strings.Fields(string(b))
	return len(lines) >= 2 && lines[0] == "0" && strings.EqualFold(lines[1], "SECTION")
}

// isIGES matches the fixed 80-column start record.
func isIGES(b []byte) bool {
	line, _, _ := bytes.Cut(b, []byte("\n"))
	line = bytes.TrimRight(line, "\r")
	return len(line) == 80 && line[72] == 'S'
}

func hasNumericLine(b []byte) bool {
	for _, line := range strings.Split(string(b), "\n") {
		if _, ok := parsePair(stripComment(line)); ok {
			return true
		}
	}
	return false
}

// Open detects the format of path and returns the matching source.
func Open(path string) (GeometrySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}

	switch format := DetectFormat(path, head[:n]); format {
	case FormatCoordinates:
		return &CoordinateFile{Path: path}, nil
	case FormatDXF:
		return &CADCurve{Path: path, Tolerance: DefaultStitchTolerance}, nil
	default:
		return nil, &UnsupportedFormatError{Path: path, Format: format}
	}
}
