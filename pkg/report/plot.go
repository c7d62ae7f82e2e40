package report

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/justjake/tablebench/pkg/sweep"
)

// Plots renders one throughput-vs-threads chart per metric. Reference-only
// variants are left out: their flat line carries no scaling information.
func (r *Reporter) Plots(ctx context.Context) ([]string, error) {
	var paths []string
	for _, m := range r.Sweep.Metrics() {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path, err := r.plotMetric(m)
		if err != nil {
			return paths, fmt.Errorf("plot %s: %w", m, err)
		}
		paths = append(paths, path)
	}
	r.logger().Info("rendered plots", "count", len(paths), "dir", r.Options.OutputDir)
	return paths, nil
}

func (r *Reporter) plotMetric(m sweep.Metric) (string, error) {
	threads := r.Sweep.Threads()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s benchmark: %s", m.Kind.Name, m.Column)
	p.X.Label.Text = "threads"
	p.Y.Label.Text = fmt.Sprintf("throughput [%s]", r.unit())
	p.Y.Min = 0

	ticks := make([]plot.Tick, len(threads))
	for i, t := range threads {
		ticks[i] = plot.Tick{Value: float64(t), Label: strconv.Itoa(t)}
	}
	if len(threads) > 1 {
		p.X.Scale = plot.LogScale{}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.Add(plotter.NewGrid())

	for _, v := range r.Sweep.MeasuredVariants() {
		xys := make(plotter.XYs, 0, len(threads))
		for _, t := range threads {
			y, err := r.point(m, v, t)
			if err != nil {
				return "", err
			}
			xys = append(xys, plotter.XY{X: float64(t), Y: y})
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return "", err
		}
		style := StyleFor(v.ID)
		var c color.Color = style.RGBA()
		line.Color = c
		line.Width = vg.Points(1.5)
		points.GlyphStyle.Color = c
		points.GlyphStyle.Shape = style.Shape
		points.GlyphStyle.Radius = vg.Points(3)

		p.Add(line, points)
		p.Legend.Add(v.Name, line, points)
	}

	path := filepath.Join(r.Options.OutputDir, m.Slug()+"."+r.plotFormat())
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", err
	}
	return path, nil
}
