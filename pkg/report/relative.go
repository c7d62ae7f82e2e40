package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/justjake/tablebench/pkg/sweep"
)

// PointSource looks up aggregated throughput. *aggregate.Points implements it.
type PointSource interface {
	At(m sweep.Metric, variant string, threads int) (float64, bool)
}

// ComparisonRow is one table's baseline-relative throughput, one ratio per
// metric. A ratio above 1 means the baseline is faster.
type ComparisonRow struct {
	Table  string    `json:"table"`
	Ratios []float64 `json:"ratios"`
}

// RelativeThroughput computes baseline ÷ variant at the highest swept thread
// count for every variant that is neither reference nor baseline.
func RelativeThroughput(s *sweep.Sweep, points PointSource) ([]sweep.Metric, []ComparisonRow, error) {
	baseline, ok := s.Baseline()
	if !ok {
		return nil, nil, fmt.Errorf("%w: no baseline table", ErrMissingVariant)
	}

	metrics := s.Metrics()
	maxThreads := s.MaxThreads()

	var rows []ComparisonRow
	for _, v := range s.MeasuredVariants() {
		if v.ID == baseline.ID {
			continue
		}
		row := ComparisonRow{Table: v.Name, Ratios: make([]float64, len(metrics))}
		for i, m := range metrics {
			base, ok := points.At(m, baseline.ID, maxThreads)
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s", ErrMissingPoint, m.Key(baseline.ID, maxThreads))
			}
			val, ok := points.At(m, v.ID, maxThreads)
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s", ErrMissingPoint, m.Key(v.ID, maxThreads))
			}
			row.Ratios[i] = base / val
		}
		rows = append(rows, row)
	}
	return metrics, rows, nil
}

// WriteRelative writes the rows as tab-separated values with a
// "table<TAB>kind:column..." header.
func WriteRelative(w io.Writer, metrics []sweep.Metric, rows []ComparisonRow) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'

	header := make([]string, 0, len(metrics)+1)
	header = append(header, "table")
	for _, m := range metrics {
		header = append(header, m.String())
	}
	if err := tw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		rec := make([]string, 0, len(row.Ratios)+1)
		rec = append(rec, row.Table)
		for _, r := range row.Ratios {
			rec = append(rec, strconv.FormatFloat(r, 'f', 6, 64))
		}
		if err := tw.Write(rec); err != nil {
			return err
		}
	}
	tw.Flush()
	return tw.Error()
}

// Relative computes the comparison rows and writes them to RelativeFileName.
func (r *Reporter) Relative(ctx context.Context) ([]sweep.Metric, []ComparisonRow, string, error) {
	metrics, rows, err := RelativeThroughput(r.Sweep, r.Points)
	if err != nil {
		return nil, nil, "", fmt.Errorf("relative throughput: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, "", err
	}

	path := filepath.Join(r.Options.OutputDir, RelativeFileName)
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create %s: %w", RelativeFileName, err)
	}
	defer f.Close()

	if err := WriteRelative(f, metrics, rows); err != nil {
		return nil, nil, "", fmt.Errorf("failed to write %s: %w", RelativeFileName, err)
	}
	if err := f.Close(); err != nil {
		return nil, nil, "", err
	}

	r.logger().Info("wrote relative throughput", "path", path, "rows", len(rows))
	return metrics, rows, path, nil
}
