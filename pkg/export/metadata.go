// Package export formats pipeline results for downstream tools: Gmsh .geo
// geometry, per-vertex CSV, JSON or YAML metadata, GeoJSON and DXF.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/chazu/foil/pkg/geom"
	"github.com/chazu/foil/pkg/pipeline"
	"github.com/chazu/foil/pkg/validate"
)

// ErrNoDomain is returned by writers that need a far-field domain when the
// result was computed without one.
var ErrNoDomain = errors.New("export: result has no domain")

// Metadata is the flat summary of one result.
type Metadata struct {
	Name        string              `json:"name" yaml:"name"`
	Title       string              `json:"title,omitempty" yaml:"title,omitempty"`
	Fingerprint string              `json:"fingerprint" yaml:"fingerprint"`
	Points      int                 `json:"points" yaml:"points"`
	Flipped     bool                `json:"flipped" yaml:"flipped"`
	Normalized  bool                `json:"normalized" yaml:"normalized"`
	LEIndex     int                 `json:"LE_idx" yaml:"LE_idx"`
	TEIndex     int                 `json:"TE_idx" yaml:"TE_idx"`
	Ranges      map[string][2]int   `json:"ranges" yaml:"ranges"`
	Descriptors map[string]*float64 `json:"descriptors" yaml:"descriptors"`
	NotComputed map[string]string   `json:"not_computed,omitempty" yaml:"not_computed,omitempty"`
	Findings    validate.Report     `json:"findings" yaml:"findings"`
	Domain      *DomainMetadata     `json:"domain,omitempty" yaml:"domain,omitempty"`
	Provenance  map[string]string   `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// DomainMetadata describes the far-field rectangle.
type DomainMetadata struct {
	Units  string             `json:"units" yaml:"units"`
	Anchor string             `json:"anchor" yaml:"anchor"`
	Chord  float64            `json:"chord" yaml:"chord"`
	XMin   float64            `json:"xmin" yaml:"xmin"`
	XMax   float64            `json:"xmax" yaml:"xmax"`
	YMin   float64            `json:"ymin" yaml:"ymin"`
	YMax   float64            `json:"ymax" yaml:"ymax"`
	Margin map[string]float64 `json:"margins" yaml:"margins"`
	Tags   []string           `json:"tags" yaml:"tags"`
}

// MetadataOf summarizes res. Descriptors that were not computed are nil
// and their reasons are listed under NotComputed.
func MetadataOf(res *pipeline.Result, provenance map[string]string) *Metadata {
	a := res.Analysis
	m := &Metadata{
		Name:        res.Name,
		Title:       res.Title,
		Fingerprint: strconv.FormatUint(res.Fingerprint, 16),
		Points:      a.Loop.Len(),
		Flipped:     a.Flipped,
		LEIndex:     a.LETE.LE,
		TEIndex:     a.LETE.TE,
		Ranges: map[string][2]int{
			"suction":  {a.Split.Suction.Start, a.Split.Suction.End},
			"pressure": {a.Split.Pressure.Start, a.Split.Pressure.End},
		},
		Descriptors: make(map[string]*float64),
		Findings:    res.Report,
		Provenance:  provenance,
	}
	if res.Normalized != nil {
		m.Normalized = res.Normalized.Scale != 1 || res.Normalized.Origin != (geom.Point{})
	}
	for _, name := range res.Descriptors.Names() {
		v, ok := res.Descriptors.Get(name)
		if !ok || math.IsNaN(v) {
			m.Descriptors[name] = nil
			continue
		}
		m.Descriptors[name] = &v
	}
	if r := res.Descriptors.Reasons(); len(r) > 0 {
		m.NotComputed = r
	}
	if d := res.Domain; d != nil {
		dm := &DomainMetadata{
			Units:  d.Units.String(),
			Anchor: d.Anchor.String(),
			Chord:  d.Chord,
			XMin:   d.Rect.Min.X,
			XMax:   d.Rect.Max.X,
			YMin:   d.Rect.Min.Y,
			YMax:   d.Rect.Max.Y,
			Margin: map[string]float64{
				"up": d.Margins.Up, "down": d.Margins.Down,
				"front": d.Margins.Front, "back": d.Margins.Back,
			},
		}
		for _, b := range d.Boundaries {
			dm.Tags = append(dm.Tags, b.Tag)
		}
		m.Domain = dm
	}
	return m
}

// JSON returns compact JSON, the form embedded in .geo comments.
func (m *Metadata) JSON() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("export: metadata: %w", err)
	}
	return b, nil
}

// WriteJSON writes indented JSON.
func (m *Metadata) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("export: metadata: %w", err)
	}
	return nil
}

// WriteYAML writes YAML.
func (m *Metadata) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("export: metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: metadata: %w", err)
	}
	return nil
}
