// Package config loads foil settings from an optional YAML file and FOIL_*
// environment variables on top of built-in defaults.
//
// Environment variables follow the key path with "." replaced by "_":
//
//	FOIL_DOMAIN_BACK=20  FOIL_TOPOLOGY_TIE_BREAK=min-index  FOIL_LOG_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/logging"
	"github.com/chazu/foil/pkg/metrics"
	"github.com/chazu/foil/pkg/normalize"
	"github.com/chazu/foil/pkg/pipeline"
	"github.com/chazu/foil/pkg/topology"
	"github.com/chazu/foil/pkg/validate"
)

const envPrefix = "FOIL"

// Config is the full settings tree.
type Config struct {
	Normalize   NormalizeConfig `mapstructure:"normalize" json:"normalize"`
	Validation  ValidateConfig  `mapstructure:"validate" json:"validate"`
	Topology    TopologyConfig  `mapstructure:"topology" json:"topology"`
	Metrics     MetricsConfig   `mapstructure:"metrics" json:"metrics"`
	Descriptors []string        `mapstructure:"descriptors" json:"descriptors"`
	Domain      DomainConfig    `mapstructure:"domain" json:"domain"`
	Batch       BatchConfig     `mapstructure:"batch" json:"batch"`
	Cache       CacheConfig     `mapstructure:"cache" json:"cache"`
	Log         logging.Config  `mapstructure:"log" json:"log"`
}

type NormalizeConfig struct {
	Epsilon       float64 `mapstructure:"epsilon" json:"epsilon"`
	AutoClose     bool    `mapstructure:"auto_close" json:"auto_close"`
	TranslateToLE bool    `mapstructure:"translate_to_le" json:"translate_to_le"`
	ScaleToChord  bool    `mapstructure:"scale_to_chord" json:"scale_to_chord"`
}

type ValidateConfig struct {
	Strict             bool    `mapstructure:"strict" json:"strict"`
	DuplicateTolerance float64 `mapstructure:"duplicate_tolerance" json:"duplicate_tolerance"`
	MaxSegmentRatio    float64 `mapstructure:"max_segment_ratio" json:"max_segment_ratio"`
	SpikeAngleDeg      float64 `mapstructure:"spike_angle_deg" json:"spike_angle_deg"`
}

type TopologyConfig struct {
	CurvatureWindow int     `mapstructure:"curvature_window" json:"curvature_window"`
	LESearchWindow  int     `mapstructure:"le_search_window" json:"le_search_window"`
	TieBreak        string  `mapstructure:"tie_break" json:"tie_break"`
	TieTolerance    float64 `mapstructure:"tie_tolerance" json:"tie_tolerance"`
}

type MetricsConfig struct {
	SmoothingWindow int     `mapstructure:"smoothing_window" json:"smoothing_window"`
	LEFitWindow     int     `mapstructure:"le_fit_window" json:"le_fit_window"`
	WedgeSpan       int     `mapstructure:"wedge_span" json:"wedge_span"`
	GridPoints      int     `mapstructure:"grid_points" json:"grid_points"`
	TEEpsilon       float64 `mapstructure:"te_epsilon" json:"te_epsilon"`
}

// DomainConfig holds the far-field margins. Skip disables domain
// construction altogether.
type DomainConfig struct {
	Up     float64 `mapstructure:"up" json:"up"`
	Down   float64 `mapstructure:"down" json:"down"`
	Front  float64 `mapstructure:"front" json:"front"`
	Back   float64 `mapstructure:"back" json:"back"`
	Units  string  `mapstructure:"units" json:"units"`
	Anchor string  `mapstructure:"anchor" json:"anchor"`
	Skip   bool    `mapstructure:"skip" json:"skip"`
}

// BatchConfig bounds batch execution. Parallelism 0 means GOMAXPROCS and
// Timeout 0 disables the per-loop timeout.
type BatchConfig struct {
	Parallelism int           `mapstructure:"parallelism" json:"parallelism"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
}

// CacheConfig sizes the result cache. Size 0 disables it.
type CacheConfig struct {
	Size int `mapstructure:"size" json:"size"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)
	return v
}

// setDefaults registers every key. AutomaticEnv only resolves keys viper
// already knows, so a key without a default cannot be set from the
// environment.
func setDefaults(v *viper.Viper) {
	n := normalize.DefaultOptions()
	v.SetDefault("normalize.epsilon", n.Epsilon)
	v.SetDefault("normalize.auto_close", n.AutoClose)
	v.SetDefault("normalize.translate_to_le", n.TranslateToLE)
	v.SetDefault("normalize.scale_to_chord", n.ScaleToUnitChord)

	val := validate.DefaultOptions()
	v.SetDefault("validate.strict", false)
	v.SetDefault("validate.duplicate_tolerance", val.DuplicateTolerance)
	v.SetDefault("validate.max_segment_ratio", val.MaxSegmentRatio)
	v.SetDefault("validate.spike_angle_deg", val.SpikeAngleDeg)

	t := topology.DefaultOptions()
	v.SetDefault("topology.curvature_window", t.CurvatureWindow)
	v.SetDefault("topology.le_search_window", t.LESearchWindow)
	v.SetDefault("topology.tie_break", t.TieBreak.String())
	v.SetDefault("topology.tie_tolerance", t.TieTolerance)

	m := metrics.DefaultOptions()
	v.SetDefault("metrics.smoothing_window", m.SmoothingWindow)
	v.SetDefault("metrics.le_fit_window", m.LEFitWindow)
	v.SetDefault("metrics.wedge_span", m.WedgeSpan)
	v.SetDefault("metrics.grid_points", m.GridPoints)
	v.SetDefault("metrics.te_epsilon", m.TEEpsilon)

	v.SetDefault("descriptors", []string{})

	d := domain.DefaultOptions()
	v.SetDefault("domain.up", d.Margins.Up)
	v.SetDefault("domain.down", d.Margins.Down)
	v.SetDefault("domain.front", d.Margins.Front)
	v.SetDefault("domain.back", d.Margins.Back)
	v.SetDefault("domain.units", d.Units.String())
	v.SetDefault("domain.anchor", d.Anchor.String())
	v.SetDefault("domain.skip", false)

	v.SetDefault("batch.parallelism", 0)
	v.SetDefault("batch.timeout", time.Duration(0))
	v.SetDefault("cache.size", 128)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_paths", []string{"stderr"})
}

// Load reads the YAML file at path, when path is non-empty, merges FOIL_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in settings without consulting the file system
// or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(key string, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
	}
	positive := func(key string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			bad(key, "must be a positive finite number, got %v", v)
		}
	}

	positive("normalize.epsilon", c.Normalize.Epsilon)
	positive("validate.duplicate_tolerance", c.Validation.DuplicateTolerance)
	positive("validate.max_segment_ratio", c.Validation.MaxSegmentRatio)
	if a := c.Validation.SpikeAngleDeg; !(a > 0 && a <= 180) {
		bad("validate.spike_angle_deg", "must be in (0, 180], got %v", a)
	}

	if w := c.Topology.CurvatureWindow; w < 3 || w%2 == 0 {
		bad("topology.curvature_window", "must be odd and at least 3, got %d", w)
	}
	if c.Topology.LESearchWindow < 1 {
		bad("topology.le_search_window", "must be at least 1, got %d", c.Topology.LESearchWindow)
	}
	if _, err := topology.ParseTieBreak(c.Topology.TieBreak); err != nil {
		bad("topology.tie_break", "%v", err)
	}
	if t := c.Topology.TieTolerance; !(t >= 0) {
		bad("topology.tie_tolerance", "must be non-negative, got %v", t)
	}

	if w := c.Metrics.SmoothingWindow; w < 1 || w%2 == 0 {
		bad("metrics.smoothing_window", "must be odd and at least 1, got %d", w)
	}
	if c.Metrics.LEFitWindow < 1 {
		bad("metrics.le_fit_window", "must be at least 1, got %d", c.Metrics.LEFitWindow)
	}
	if c.Metrics.WedgeSpan < 1 {
		bad("metrics.wedge_span", "must be at least 1, got %d", c.Metrics.WedgeSpan)
	}
	positive("metrics.te_epsilon", c.Metrics.TEEpsilon)
	if c.Metrics.GridPoints < 2 {
		bad("metrics.grid_points", "must be at least 2, got %d", c.Metrics.GridPoints)
	}
	known := map[string]bool{}
	for _, n := range metrics.Names() {
		known[n] = true
	}
	for _, n := range c.Descriptors {
		if !known[n] {
			bad("descriptors", "unknown descriptor %q", n)
		}
	}

	for _, m := range []struct {
		key string
		v   float64
	}{
		{"domain.up", c.Domain.Up}, {"domain.down", c.Domain.Down},
		{"domain.front", c.Domain.Front}, {"domain.back", c.Domain.Back},
	} {
		if !(m.v >= 0) || math.IsInf(m.v, 0) {
			bad(m.key, "must be a non-negative finite number, got %v", m.v)
		}
	}
	if _, err := domain.ParseUnits(c.Domain.Units); err != nil {
		bad("domain.units", "%v", err)
	}
	if _, err := domain.ParseAnchor(c.Domain.Anchor); err != nil {
		bad("domain.anchor", "%v", err)
	}

	if c.Batch.Parallelism < 0 {
		bad("batch.parallelism", "must be non-negative, got %d", c.Batch.Parallelism)
	}
	if c.Batch.Timeout < 0 {
		bad("batch.timeout", "must be non-negative, got %s", c.Batch.Timeout)
	}
	if c.Cache.Size < 0 {
		bad("cache.size", "must be non-negative, got %d", c.Cache.Size)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		bad("log.level", "%v", err)
	}
	if f := c.Log.Format; f != "json" && f != "console" {
		bad("log.format", "must be json or console, got %q", f)
	}
	return errors.Join(errs...)
}

// Pipeline converts the settings into pipeline options. The config must
// have passed Validate.
func (c *Config) Pipeline() (pipeline.Config, error) {
	tie, err := topology.ParseTieBreak(c.Topology.TieBreak)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	units, err := domain.ParseUnits(c.Domain.Units)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	anchor, err := domain.ParseAnchor(c.Domain.Anchor)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}

	p := pipeline.DefaultConfig()
	p.Normalize = normalize.Options{
		Epsilon:          c.Normalize.Epsilon,
		AutoClose:        c.Normalize.AutoClose,
		TranslateToLE:    c.Normalize.TranslateToLE,
		ScaleToUnitChord: c.Normalize.ScaleToChord,
	}
	p.Validate = validate.Options{
		DuplicateTolerance: c.Validation.DuplicateTolerance,
		MaxSegmentRatio:    c.Validation.MaxSegmentRatio,
		SpikeAngleDeg:      c.Validation.SpikeAngleDeg,
	}
	p.Strict = c.Validation.Strict
	p.Topology.CurvatureWindow = c.Topology.CurvatureWindow
	p.Topology.LESearchWindow = c.Topology.LESearchWindow
	p.Topology.TieBreak = tie
	p.Topology.TieTolerance = c.Topology.TieTolerance
	p.Metrics = metrics.Options{
		CurvatureWindow: c.Topology.CurvatureWindow,
		SmoothingWindow: c.Metrics.SmoothingWindow,
		LEFitWindow:     c.Metrics.LEFitWindow,
		WedgeSpan:       c.Metrics.WedgeSpan,
		GridPoints:      c.Metrics.GridPoints,
		TEEpsilon:       c.Metrics.TEEpsilon,
	}
	p.Descriptors = append([]string(nil), c.Descriptors...)
	p.SkipDomain = c.Domain.Skip
	p.Domain = domain.Options{
		Margins: domain.Margins{Up: c.Domain.Up, Down: c.Domain.Down, Front: c.Domain.Front, Back: c.Domain.Back},
		Units:   units,
		Anchor:  anchor,
	}
	return p, nil
}
