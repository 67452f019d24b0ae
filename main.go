// Command foil normalizes airfoil outlines, analyzes their topology and
// shape, and builds far-field domains for CFD preprocessing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/chazu/foil/pkg/config"
	"github.com/chazu/foil/pkg/domain"
	"github.com/chazu/foil/pkg/export"
	"github.com/chazu/foil/pkg/logging"
	"github.com/chazu/foil/pkg/pipeline"
	"github.com/chazu/foil/pkg/source"
)

// Output formats of the analyze command.
const (
	formatJSON    = "json"
	formatYAML    = "yaml"
	formatGeoJSON = "geojson"
	formatGeo     = "geo"
	formatCSV     = "csv"
	formatDXF     = "dxf"
	formatField   = "field"
)

var formats = []string{formatJSON, formatYAML, formatGeoJSON, formatGeo, formatCSV, formatDXF, formatField}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	c := &cli{}
	err := rootCmd(c).ExecuteContext(ctx)
	if terr := c.teardown(); terr != nil && err == nil {
		err = terr
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if err != nil {
		os.Exit(1)
	}
}

// cli holds what the persistent pre-run builds for every command.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string
	metricsOut string

	cfg      *config.Config
	log      logging.Logger
	registry *prometheus.Registry
}

func rootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "foil",
		Short:        "Airfoil geometry normalization, analysis and far-field domains",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML config file")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: json or console")
	pf.StringVar(&c.metricsOut, "metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	root.AddCommand(c.analyzeCmd(), c.batchCmd(), c.runCmd())
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logging.SetDefault(log)
	c.cfg, c.log = cfg, log
	c.registry = prometheus.NewRegistry()
	return nil
}

// teardown flushes logs and writes metrics. It runs after every command,
// including failed ones.
func (c *cli) teardown() error {
	if c.log == nil {
		return nil
	}
	if c.metricsOut != "" {
		if err := prometheus.WriteToTextfile(c.metricsOut, c.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	_ = c.log.Sync()
	return nil
}

func (c *cli) app(baseDir string) (*App, error) {
	return NewApp(c.cfg, c.log, c.registry, baseDir)
}

// ---------------------------------------------------------------------------
// analyze
// ---------------------------------------------------------------------------

type analyzeFlags struct {
	margins     string
	units       string
	anchor      string
	format      string
	output      string
	unitChord   bool
	strict      bool
	descriptors []string
	resolution  int
	noMeta      bool
	layer       string
}

func (c *cli) analyzeCmd() *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one coordinate or DXF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.analyze(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.margins, "margins", "", "far-field margins up,down,front,back")
	fl.StringVar(&f.units, "units", "", "margin units: chord or absolute")
	fl.StringVar(&f.anchor, "anchor", "", "margin anchor: bbox or leading-edge")
	fl.StringVarP(&f.format, "format", "f", formatJSON, "output format: "+strings.Join(formats, ", "))
	fl.StringVarP(&f.output, "output", "o", "", "output file, stdout when empty (required for dxf)")
	fl.BoolVar(&f.unitChord, "unit-chord", false, "translate the leading point to the origin and scale to unit chord")
	fl.BoolVar(&f.strict, "strict", false, "fail on blocking validation findings")
	fl.StringSliceVar(&f.descriptors, "descriptors", nil, "descriptors to compute, all when empty")
	fl.IntVar(&f.resolution, "resolution", 0, "cells across the wider side of the field grid")
	fl.BoolVar(&f.noMeta, "no-meta", false, "omit the metadata comment block from .geo output")
	fl.StringVar(&f.layer, "layer", "", "read only this DXF layer")
	return cmd
}

func (c *cli) analyze(cmd *cobra.Command, path string, f *analyzeFlags) error {
	app, err := c.app(filepath.Dir(path))
	if err != nil {
		return err
	}
	cfg, err := f.apply(app.Base())
	if err != nil {
		return err
	}
	src, err := source.Open(path)
	if err != nil {
		return err
	}
	if f.layer != "" {
		cad, ok := src.(*source.CADCurve)
		if !ok {
			return fmt.Errorf("--layer only applies to DXF files")
		}
		cad.Layer = f.layer
	}
	res, err := app.Analyze(cmd.Context(), src, cfg)
	if err != nil {
		return err
	}
	provenance := map[string]string{
		"source_file": path,
		"units":       cfg.Domain.Units.String(),
	}

	if f.format == formatDXF {
		if f.output == "" {
			return errors.New("dxf output needs -o")
		}
		return export.DXF(f.output, res)
	}

	w, closeFn, err := openOutput(cmd.OutOrStdout(), f.output)
	if err != nil {
		return err
	}
	defer closeFn()

	switch f.format {
	case formatJSON:
		return export.MetadataOf(res, provenance).WriteJSON(w)
	case formatYAML:
		return export.MetadataOf(res, provenance).WriteYAML(w)
	case formatGeoJSON:
		b, err := export.MarshalGeoJSON(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case formatGeo:
		return export.Geo(w, res, export.GeoOptions{Metadata: !f.noMeta, Provenance: provenance})
	case formatCSV:
		return export.ScalarsCSV(w, res.Scalars)
	case formatField:
		fld, err := app.WallDistance(res, f.resolution)
		if err != nil {
			return err
		}
		return export.FieldCSV(w, fld)
	}
	return fmt.Errorf("unknown format %q, expected one of %s", f.format, strings.Join(formats, ", "))
}

func (f *analyzeFlags) apply(cfg pipeline.Config) (pipeline.Config, error) {
	if f.margins != "" {
		m, err := parseMargins(f.margins)
		if err != nil {
			return cfg, err
		}
		cfg.Domain.Margins = m
	}
	if f.units != "" {
		u, err := domain.ParseUnits(f.units)
		if err != nil {
			return cfg, err
		}
		cfg.Domain.Units = u
	}
	if f.anchor != "" {
		a, err := domain.ParseAnchor(f.anchor)
		if err != nil {
			return cfg, err
		}
		cfg.Domain.Anchor = a
	}
	if f.unitChord {
		cfg.Normalize.TranslateToLE = true
		cfg.Normalize.ScaleToUnitChord = true
	}
	if f.strict {
		cfg.Strict = true
	}
	if len(f.descriptors) > 0 {
		cfg.Descriptors = append([]string(nil), f.descriptors...)
	}
	return cfg, nil
}

// parseMargins reads "up,down,front,back".
func parseMargins(s string) (domain.Margins, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Margins{}, fmt.Errorf("margins: want up,down,front,back, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Margins{}, fmt.Errorf("margins: %w", err)
		}
		v[i] = f
	}
	return domain.Margins{Up: v[0], Down: v[1], Front: v[2], Back: v[3]}, nil
}

func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return fh, func() { _ = fh.Close() }, nil
}

// ---------------------------------------------------------------------------
// batch and run
// ---------------------------------------------------------------------------

func (c *cli) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <files...>",
		Short: "Analyze many files in parallel and print one summary per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app("")
			if err != nil {
				return err
			}
			out := EvalResult{Results: make([]CaseData, len(args)), Errors: []EvalErrorData{}}
			var srcs []source.GeometrySource
			var at []int
			for i, p := range args {
				src, err := source.Open(p)
				if err != nil {
					out.Results[i] = CaseData{Name: p, Stage: pipeline.StageRead, Error: err.Error()}
					continue
				}
				srcs = append(srcs, src)
				at = append(at, i)
			}

			br := app.Batch(cmd.Context(), srcs)
			out.RunID = br.RunID
			for k, it := range br.Items {
				out.Results[at[k]] = Summary(it)
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return errFailed(out.Failed(), len(args))
		},
	}
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.lisp>",
		Short: "Evaluate a case script and analyze every airfoil it declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			app, err := c.app(filepath.Dir(args[0]))
			if err != nil {
				return err
			}
			res := app.Evaluate(cmd.Context(), string(script))
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%s: %d script errors", args[0], len(res.Errors))
			}
			return errFailed(res.Failed(), len(res.Results))
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
