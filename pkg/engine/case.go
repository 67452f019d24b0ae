package engine

import (
	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/pipeline"
	"github.com/chazu/foil/pkg/source"
	"github.com/chazu/foil/pkg/topology"
)

// Case is one airfoil analysis declared by a script.
type Case struct {
	Name      string
	Source    source.GeometrySource
	Overrides Overrides
}

// Overrides holds per-case settings. Nil fields keep the base config.
type Overrides struct {
	Margins     *domain.Margins
	Units       *domain.Units
	Anchor      *domain.Anchor
	AutoClose   *bool
	Epsilon     *float64
	UnitChord   *bool
	TieBreak    *topology.TieBreak
	Strict      *bool
	Descriptors []string
}

// Apply returns base with the overrides applied.
func (o Overrides) Apply(base pipeline.Config) pipeline.Config {
	cfg := base
	if o.Margins != nil {
		cfg.Domain.Margins = *o.Margins
	}
	if o.Units != nil {
		cfg.Domain.Units = *o.Units
	}
	if o.Anchor != nil {
		cfg.Domain.Anchor = *o.Anchor
	}
	if o.AutoClose != nil {
		cfg.Normalize.AutoClose = *o.AutoClose
	}
	if o.Epsilon != nil {
		cfg.Normalize.Epsilon = *o.Epsilon
	}
	if o.UnitChord != nil {
		cfg.Normalize.TranslateToLE = *o.UnitChord
		cfg.Normalize.ScaleToUnitChord = *o.UnitChord
	}
	if o.TieBreak != nil {
		cfg.Topology.TieBreak = *o.TieBreak
	}
	if o.Strict != nil {
		cfg.Strict = *o.Strict
	}
	if o.Descriptors != nil {
		cfg.Descriptors = append([]string(nil), o.Descriptors...)
	}
	return cfg
}

// Empty reports whether no override is set.
func (o Overrides) Empty() bool {
	return o.Margins == nil && o.Units == nil && o.Anchor == nil &&
		o.AutoClose == nil && o.Epsilon == nil && o.UnitChord == nil &&
		o.TieBreak == nil && o.Strict == nil && o.Descriptors == nil
}
