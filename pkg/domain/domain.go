// Package domain builds the rectangular far-field region around an analyzed
// airfoil loop and tags its boundary segments.
package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/topology"
)

// Boundary tags shared with mesh and solver setups.
const (
	TagInlet   = "inlet"
	TagOutlet  = "outlet"
	TagTop     = "top"
	TagBottom  = "bottom"
	TagAirfoil = "airfoil"
)

// Units selects how margins are measured.
type Units int

const (
	// UnitsChord multiplies margins by the chord length.
	UnitsChord Units = iota
	// UnitsAbsolute uses margins as loop coordinates.
	UnitsAbsolute
)

func (u Units) String() string {
	if u == UnitsAbsolute {
		return "absolute"
	}
	return "chord"
}

// ParseUnits parses "chord" or "absolute".
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chord":
		return UnitsChord, nil
	case "absolute", "abs":
		return UnitsAbsolute, nil
	}
	return 0, fmt.Errorf("domain: unknown units %q, expected chord or absolute", s)
}

// Anchor selects what the margins are measured from.
type Anchor int

const (
	// AnchorBoundingBox offsets each side of the loop's bounding box.
	AnchorBoundingBox Anchor = iota
	// AnchorLeadingEdge measures every margin from the LE point.
	AnchorLeadingEdge
)

func (a Anchor) String() string {
	if a == AnchorLeadingEdge {
		return "leading-edge"
	}
	return "bbox"
}

// ParseAnchor parses "bbox" or "leading-edge".
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bbox", "bounding-box", "bounding_box":
		return AnchorBoundingBox, nil
	case "leading-edge", "leading_edge", "le":
		return AnchorLeadingEdge, nil
	}
	return 0, fmt.Errorf("domain: unknown anchor %q, expected bbox or leading-edge", s)
}

// BoundaryKind classifies a boundary for boundary-condition assignment.
type BoundaryKind int

const (
	Inflow BoundaryKind = iota
	Outflow
	Farfield
	Wall
)

func (k BoundaryKind) String() string {
	switch k {
	case Inflow:
		return "inflow"
	case Outflow:
		return "outflow"
	case Farfield:
		return "farfield"
	case Wall:
		return "wall"
	}
	return "unknown"
}

// Margins are the distances from the anchor to each rectangle edge.
type Margins struct {
	Up    float64 `json:"up" mapstructure:"up"`
	Down  float64 `json:"down" mapstructure:"down"`
	Front float64 `json:"front" mapstructure:"front"`
	Back  float64 `json:"back" mapstructure:"back"`
}

// Scaled returns the margins multiplied by f.
func (m Margins) Scaled(f float64) Margins {
	return Margins{Up: m.Up * f, Down: m.Down * f, Front: m.Front * f, Back: m.Back * f}
}

// validate checks every margin is finite and non-negative.
func (m Margins) validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"up", m.Up}, {"down", m.Down}, {"front", m.Front}, {"back", m.Back}} {
		switch {
		case math.IsNaN(f.v) || math.IsInf(f.v, 0):
			return &InvalidDomainError{Field: f.name, Value: f.v, Reason: "margin must be finite"}
		case f.v < 0:
			return &InvalidDomainError{Field: f.name, Value: f.v, Reason: "margin must be non-negative"}
		}
	}
	return nil
}

// Options configures Build.
type Options struct {
	Margins Margins
	Units   Units
	Anchor  Anchor
}

// DefaultOptions returns five chords around the airfoil and ten behind it.
func DefaultOptions() Options {
	return Options{
		Margins: Margins{Up: 5, Down: 5, Front: 5, Back: 10},
		Units:   UnitsChord,
		Anchor:  AnchorBoundingBox,
	}
}

// Boundary is one tagged piece of the domain boundary. Rectangle edges run
// From→To counter-clockwise around the domain; the wall boundary carries
// the airfoil loop instead.
type Boundary struct {
	Tag  string
	Kind BoundaryKind
	From geom.Point
	To   geom.Point
	Loop *geom.Loop
}

// Domain is the far-field rectangle around one analyzed loop.
type Domain struct {
	Rect       sdf.Box2
	BBox       sdf.Box2 // bounding box of the loop
	Margins    Margins  // absolute, after unit conversion
	Units      Units
	Anchor     Anchor
	Chord      float64
	Boundaries []Boundary
}

// Width returns the rectangle's x extent.
func (d *Domain) Width() float64 { return d.Rect.Max.X - d.Rect.Min.X }

// Height returns the rectangle's y extent.
func (d *Domain) Height() float64 { return d.Rect.Max.Y - d.Rect.Min.Y }

// Boundary returns the boundary with the given tag.
func (d *Domain) Boundary(tag string) (Boundary, bool) {
	for _, b := range d.Boundaries {
		if b.Tag == tag {
			return b, true
		}
	}
	return Boundary{}, false
}

// Corners returns the rectangle corners counter-clockwise from the lower
// left.
func (d *Domain) Corners() [4]geom.Point {
	lo, hi := d.Rect.Min, d.Rect.Max
	return [4]geom.Point{
		{X: lo.X, Y: lo.Y},
		{X: hi.X, Y: lo.Y},
		{X: hi.X, Y: hi.Y},
		{X: lo.X, Y: hi.Y},
	}
}

// Build computes the far-field rectangle for an analyzed loop. Margins must
// be finite and non-negative, the rectangle must have positive area and it
// must contain the loop's bounding box.
func Build(a *topology.Analysis, opts Options) (*Domain, error) {
	if err := opts.Margins.validate(); err != nil {
		return nil, err
	}
	chord := a.Chord()
	m := opts.Margins
	if opts.Units == UnitsChord {
		if !(chord > 0) {
			return nil, &InvalidDomainError{Field: "chord", Value: chord, Reason: "chord units need a positive chord"}
		}
		m = m.Scaled(chord)
	}

	bbox := a.Loop.Bounds()
	lo, hi := bbox.Min, bbox.Max
	if opts.Anchor == AnchorLeadingEdge {
		le := a.LE()
		lo, hi = le, le
	}
	rect := sdf.Box2{
		Min: geom.Point{X: lo.X - m.Front, Y: lo.Y - m.Down},
		Max: geom.Point{X: hi.X + m.Back, Y: hi.Y + m.Up},
	}

	if w := rect.Max.X - rect.Min.X; !(w > 0) {
		return nil, &InvalidDomainError{Field: "rect", Value: w, Reason: "zero-width rectangle"}
	}
	if h := rect.Max.Y - rect.Min.Y; !(h > 0) {
		return nil, &InvalidDomainError{Field: "rect", Value: h, Reason: "zero-height rectangle"}
	}
	if err := contains(rect, bbox); err != nil {
		return nil, err
	}

	d := &Domain{
		Rect:    rect,
		BBox:    bbox,
		Margins: m,
		Units:   opts.Units,
		Anchor:  opts.Anchor,
		Chord:   chord,
	}
	c := d.Corners()
	d.Boundaries = []Boundary{
		{Tag: TagBottom, Kind: Farfield, From: c[0], To: c[1]},
		{Tag: TagOutlet, Kind: Outflow, From: c[1], To: c[2]},
		{Tag: TagTop, Kind: Farfield, From: c[2], To: c[3]},
		{Tag: TagInlet, Kind: Inflow, From: c[3], To: c[0]},
		{Tag: TagAirfoil, Kind: Wall, From: a.TE(), To: a.TE(), Loop: a.Loop},
	}
	return d, nil
}

// contains reports which side of rect, if any, cuts into bbox.
func contains(rect, bbox sdf.Box2) error {
	switch {
	case rect.Min.X > bbox.Min.X:
		return &InvalidDomainError{Field: "front", Value: bbox.Min.X - rect.Min.X, Reason: "rectangle does not contain the loop"}
	case rect.Max.X < bbox.Max.X:
		return &InvalidDomainError{Field: "back", Value: rect.Max.X - bbox.Max.X, Reason: "rectangle does not contain the loop"}
	case rect.Min.Y > bbox.Min.Y:
		return &InvalidDomainError{Field: "down", Value: bbox.Min.Y - rect.Min.Y, Reason: "rectangle does not contain the loop"}
	case rect.Max.Y < bbox.Max.Y:
		return &InvalidDomainError{Field: "up", Value: rect.Max.Y - bbox.Max.Y, Reason: "rectangle does not contain the loop"}
	}
	return nil
}
