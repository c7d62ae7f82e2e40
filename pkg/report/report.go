// Package report turns aggregated throughput points into charts, a relative
// throughput table and paginated LaTeX tables.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/justjake/tablebench/pkg/aggregate"
	"github.com/justjake/tablebench/pkg/sweep"
)

var (
	// ErrMissingThreadCount is returned when the tabular report needs a
	// thread count that was not swept.
	ErrMissingThreadCount = errors.New("required thread count not swept")
	// ErrMissingVariant is returned when a report needs the reference or
	// baseline table and it was not selected.
	ErrMissingVariant = errors.New("required table not selected")
	// ErrMissingPoint is returned when an aggregated point is absent.
	ErrMissingPoint = errors.New("missing aggregated point")
)

// RelativeFileName is the name of the relative throughput table.
const RelativeFileName = "relative_throughput.tsv"

// Options configures the emitters.
type Options struct {
	OutputDir string
	// PlotFormat is the chart file extension: png, svg or pdf.
	PlotFormat string
	Unit       string
	// Table enables the LaTeX report when non-nil.
	Table *TableOptions
}

// Artifacts lists every file the emitters wrote.
type Artifacts struct {
	Plots    []string        `json:"plots"`
	Relative string          `json:"relative,omitempty"`
	Rows     []ComparisonRow `json:"-"`
	Metrics  []sweep.Metric  `json:"-"`
	Tables   []string        `json:"tables,omitempty"`
}

// Files returns every artifact path.
func (a *Artifacts) Files() []string {
	var out []string
	out = append(out, a.Plots...)
	if a.Relative != "" {
		out = append(out, a.Relative)
	}
	return append(out, a.Tables...)
}

// Reporter emits every report for one aggregated sweep.
type Reporter struct {
	Sweep   *sweep.Sweep
	Points  *aggregate.Points
	Options Options
	Logger  *slog.Logger
}

// New creates a Reporter.
func New(s *sweep.Sweep, points *aggregate.Points, opts Options, logger *slog.Logger) *Reporter {
	return &Reporter{Sweep: s, Points: points, Options: opts, Logger: logger}
}

// Emit runs the chart, relative throughput and tabular emitters concurrently.
// They read the same immutable points and write disjoint files. The first
// failure cancels the others.
func (r *Reporter) Emit(ctx context.Context) (*Artifacts, error) {
	if err := os.MkdirAll(r.Options.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		plots  []string
		rel    string
		rows   []ComparisonRow
		cols   []sweep.Metric
		tables []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plots, err = r.Plots(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		cols, rows, rel, err = r.Relative(ctx)
		return err
	})
	if r.Options.Table != nil {
		g.Go(func() error {
			var err error
			tables, err = r.Tables(ctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Artifacts{
		Plots:    plots,
		Relative: rel,
		Rows:     rows,
		Metrics:  cols,
		Tables:   tables,
	}, nil
}

func (r *Reporter) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Reporter) unit() string {
	if r.Options.Unit == "" {
		return aggregate.Unit
	}
	return r.Options.Unit
}

func (r *Reporter) plotFormat() string {
	if r.Options.PlotFormat == "" {
		return "png"
	}
	return r.Options.PlotFormat
}

func (r *Reporter) point(m sweep.Metric, v sweep.Variant, threads int) (float64, error) {
	y, ok := r.Points.At(m, v.ID, threads)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingPoint, m.Key(v.ID, threads))
	}
	return y, nil
}
