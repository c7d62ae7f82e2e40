package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/justjake/tablebench/pkg/sweep"
)

// DefaultPageSize is the number of tables per LaTeX page.
const DefaultPageSize = 4

// TableOptions configures the paginated LaTeX report.
type TableOptions struct {
	// Output is the path prefix; pages are written to <Output>.<n>.tex.
	Output   string
	PageSize int
	// MaxCores bounds the "best throughput" window to [MaxCores/2, MaxCores].
	MaxCores int
	// Headers wraps each page in a tabular environment.
	Headers bool
}

// Cell is one table's figures for one metric.
type Cell struct {
	Table string
	// Best is the highest throughput in the [MaxCores/2, MaxCores] window.
	Best float64
	// SelfSpeedup is Best over the table's own single-threaded throughput.
	SelfSpeedup float64
	// ReferenceSpeedup is Best over the reference table's serial throughput.
	ReferenceSpeedup float64
	// BaselineRatio is throughput at MaxCores over the baseline's at MaxCores.
	BaselineRatio float64
}

// Row is one metric across the tables of a page.
type Row struct {
	Metric sweep.Metric
	Cells  []Cell
}

// Page is one group of tables.
type Page struct {
	Tables []sweep.Variant
	Rows   []Row
}

// Partition splits items into consecutive groups of at most size elements.
func Partition[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var groups [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		groups = append(groups, items[:n:n])
		items = items[n:]
	}
	return groups
}

// BuildPages computes every page. The thread counts and tables it needs are
// checked before any cell is computed.
func BuildPages(s *sweep.Sweep, points PointSource, opts TableOptions) ([]Page, error) {
	if opts.MaxCores < 1 {
		return nil, fmt.Errorf("%w: max cores must be positive, got %d", ErrMissingThreadCount, opts.MaxCores)
	}
	for _, p := range []int{1, opts.MaxCores} {
		if !s.HasThreads(p) {
			return nil, fmt.Errorf("%w: %d", ErrMissingThreadCount, p)
		}
	}
	ref, ok := s.Reference()
	if !ok {
		return nil, fmt.Errorf("%w: no reference table", ErrMissingVariant)
	}
	base, ok := s.Baseline()
	if !ok {
		return nil, fmt.Errorf("%w: no baseline table", ErrMissingVariant)
	}

	var window []int
	for _, p := range s.Threads() {
		if p >= opts.MaxCores/2 && p <= opts.MaxCores {
			window = append(window, p)
		}
	}

	get := func(m sweep.Metric, v sweep.Variant, p int) (float64, error) {
		y, ok := points.At(m, v.ID, p)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingPoint, m.Key(v.ID, p))
		}
		return y, nil
	}

	size := opts.PageSize
	if size == 0 {
		size = DefaultPageSize
	}

	var pages []Page
	for _, group := range Partition(s.MeasuredVariants(), size) {
		page := Page{Tables: group}
		for _, m := range s.Metrics() {
			serialRef, err := get(m, ref, 1)
			if err != nil {
				return nil, err
			}
			baseMax, err := get(m, base, opts.MaxCores)
			if err != nil {
				return nil, err
			}

			row := Row{Metric: m}
			for _, v := range group {
				var best float64
				for _, p := range window {
					y, err := get(m, v, p)
					if err != nil {
						return nil, err
					}
					best = max(best, y)
				}
				serial, err := get(m, v, 1)
				if err != nil {
					return nil, err
				}
				atMax, err := get(m, v, opts.MaxCores)
				if err != nil {
					return nil, err
				}
				row.Cells = append(row.Cells, Cell{
					Table:            v.Name,
					Best:             best,
					SelfSpeedup:      best / serial,
					ReferenceSpeedup: best / serialRef,
					BaselineRatio:    atMax / baseMax,
				})
			}
			page.Rows = append(page.Rows, row)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

var latexEscaper = strings.NewReplacer(`_`, `\_`, `&`, `\&`, `%`, `\%`, `#`, `\#`)

// WriteLaTeX writes one page. With headers it is wrapped in a tabular
// environment with one four-column group per table.
func WriteLaTeX(w io.Writer, page Page, headers bool) error {
	var b bytes.Buffer
	if headers {
		b.WriteString(`\begin{tabular}{l`)
		for range page.Tables {
			b.WriteString(`|rrrr`)
		}
		b.WriteString("}\n")
		for i, v := range page.Tables {
			sep := "c|"
			if i == len(page.Tables)-1 {
				sep = "c"
			}
			fmt.Fprintf(&b, ` & \multicolumn{4}{%s}{%s}`, sep, latexEscaper.Replace(v.Name))
		}
		b.WriteString(" \\\\\n")
		b.WriteString("benchmark")
		for range page.Tables {
			b.WriteString(" & best & self & ref & base")
		}
		b.WriteString(" \\\\\n\\hline\n")
	}

	for _, row := range page.Rows {
		b.WriteString(latexEscaper.Replace(row.Metric.Kind.Name + " " + row.Metric.Column))
		for _, c := range row.Cells {
			fmt.Fprintf(&b, " & %.2f & %.2f & %.2f & %.2f", c.Best, c.SelfSpeedup, c.ReferenceSpeedup, c.BaselineRatio)
		}
		b.WriteString(" \\\\\n")
	}

	if headers {
		b.WriteString("\\end{tabular}\n")
	}
	_, err := w.Write(b.Bytes())
	return err
}

// PagePath returns the file for page n (1-based).
func PagePath(output string, n int) string {
	return fmt.Sprintf("%s.%d.tex", strings.TrimSuffix(output, ".tex"), n)
}

// Tables writes every LaTeX page.
func (r *Reporter) Tables(ctx context.Context) ([]string, error) {
	opts := *r.Options.Table
	pages, err := BuildPages(r.Sweep, r.Points, opts)
	if err != nil {
		return nil, fmt.Errorf("tabular report: %w", err)
	}

	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	var paths []string
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		var buf bytes.Buffer
		if err := WriteLaTeX(&buf, page, opts.Headers); err != nil {
			return paths, err
		}
		path := PagePath(opts.Output, i+1)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	r.logger().Info("wrote tabular report", "pages", len(paths), "output", opts.Output)
	return paths, nil
}
