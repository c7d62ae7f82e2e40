package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justjake/tablebench/pkg/aggregate"
	"github.com/justjake/tablebench/pkg/sweep"
)

// fakePoints returns value(variant, threads) for every metric.
type fakePoints func(variant string, threads int) (float64, bool)

func (f fakePoints) At(_ sweep.Metric, variant string, threads int) (float64, bool) {
	return f(variant, threads)
}

func newSweep(t *testing.T, variants []string, threads []int) *sweep.Sweep {
	t.Helper()
	s, err := sweep.New(sweep.Spec{
		Kinds:     []string{"i"},
		Variants:  variants,
		Threads:   threads,
		Params:    sweep.Params{ElementCount: 1000, Iterations: 1},
		Reference: "s",
		Baseline:  "f",
	})
	require.NoError(t, err)
	return s
}

// linear: folly scales perfectly at 10 per thread, paGrowT at 20, ska is 5.
func linear(variant string, threads int) (float64, bool) {
	switch variant {
	case "f":
		return 10 * float64(threads), true
	case "g":
		return 20 * float64(threads), true
	case "r":
		return 5 * float64(threads), true
	case "s":
		return 5, true
	}
	return 0, false
}

func TestPartition(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	groups := Partition(items, 3)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{3, 3, 1}, []int{len(groups[0]), len(groups[1]), len(groups[2])})
	assert.Equal(t, []int{7}, groups[2])

	assert.Len(t, Partition(items, 7), 1)
	assert.Len(t, Partition(items, 100), 1)
	assert.Len(t, Partition(items, 1), 7)
	assert.Empty(t, Partition([]int{}, 3))

	groups[0] = append(groups[0], 99)
	assert.Equal(t, 4, items[3], "groups must not alias the next group")
}

func TestRelativeThroughput(t *testing.T) {
	s := newSweep(t, []string{"f", "s", "g", "r"}, []int{1, 2, 4})

	metrics, rows, err := RelativeThroughput(s, fakePoints(linear))
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	// reference and baseline get no row
	require.Len(t, rows, 2)
	assert.Equal(t, "paGrowT", rows[0].Table)
	assert.Equal(t, "robinhood", rows[1].Table)
	for _, r := range rows[0].Ratios {
		assert.InDelta(t, 40.0/80.0, r, 1e-12)
	}
	for _, r := range rows[1].Ratios {
		assert.InDelta(t, 40.0/20.0, r, 1e-12)
	}
}

func TestRelativeThroughput_MissingBaseline(t *testing.T) {
	s, err := sweep.New(sweep.Spec{
		Kinds:     []string{"i"},
		Variants:  []string{"g", "r"},
		Threads:   []int{1, 2},
		Params:    sweep.Params{ElementCount: 1000, Iterations: 1},
		Reference: "s",
		Baseline:  "f",
	})
	require.NoError(t, err)

	_, _, err = RelativeThroughput(s, fakePoints(linear))
	assert.ErrorIs(t, err, ErrMissingVariant)
}

func TestWriteRelative(t *testing.T) {
	s := newSweep(t, []string{"f", "g"}, []int{1, 2})
	metrics, rows, err := RelativeThroughput(s, fakePoints(linear))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRelative(&buf, metrics, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "table\tins:t_ins\tins:t_find_-\tins:t_find_+", lines[0])
	assert.Equal(t, "paGrowT\t0.500000\t0.500000\t0.500000", lines[1])
}

func TestBuildPages(t *testing.T) {
	s := newSweep(t, []string{"f", "s", "g", "r"}, []int{1, 2, 4, 8})

	pages, err := BuildPages(s, fakePoints(linear), TableOptions{PageSize: 2, MaxCores: 8})
	require.NoError(t, err)

	// folly, paGrowT | robinhood
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Tables, 2)
	require.Len(t, pages[1].Tables, 1)
	require.Len(t, pages[0].Rows, 3)

	g := pages[0].Rows[0].Cells[1]
	assert.Equal(t, "paGrowT", g.Table)
	assert.Equal(t, 160.0, g.Best)
	assert.Equal(t, 8.0, g.SelfSpeedup)
	assert.Equal(t, 32.0, g.ReferenceSpeedup)
	assert.Equal(t, 2.0, g.BaselineRatio)

	f := pages[0].Rows[0].Cells[0]
	assert.Equal(t, 1.0, f.BaselineRatio)
}

func TestBuildPages_BestWithinWindow(t *testing.T) {
	s := newSweep(t, []string{"f", "s", "g"}, []int{1, 2, 4, 8, 16})

	// paGrowT peaks at 4 threads and degrades beyond
	peaked := func(variant string, threads int) (float64, bool) {
		if variant == "g" {
			return map[int]float64{1: 10, 2: 100, 4: 40, 8: 30, 16: 20}[threads], true
		}
		return linear(variant, threads)
	}

	pages, err := BuildPages(s, fakePoints(peaked), TableOptions{PageSize: 4, MaxCores: 8})
	require.NoError(t, err)
	cell := pages[0].Rows[0].Cells[1]
	assert.Equal(t, 40.0, cell.Best, "2 and 16 threads fall outside [4, 8]")
}

func TestBuildPages_MissingThreadCount(t *testing.T) {
	tests := []struct {
		name     string
		threads  []int
		maxCores int
	}{
		{"max cores not swept", []int{1, 2, 4}, 8},
		{"max cores unset", []int{1, 2, 4}, 0},
		{"no single-threaded run", []int{2, 4, 8}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variants := []string{"f", "s", "g"}
			if tt.threads[0] != 1 {
				// the reference cannot be selected without a serial run
				variants = []string{"f", "g"}
			}
			s, err := sweep.New(sweep.Spec{
				Kinds:     []string{"i"},
				Variants:  variants,
				Threads:   tt.threads,
				Params:    sweep.Params{ElementCount: 1000, Iterations: 1},
				Reference: "s",
				Baseline:  "f",
			})
			require.NoError(t, err)

			_, err = BuildPages(s, fakePoints(linear), TableOptions{MaxCores: tt.maxCores})
			assert.ErrorIs(t, err, ErrMissingThreadCount)
		})
	}
}

func TestWriteLaTeX(t *testing.T) {
	s := newSweep(t, []string{"f", "s", "g"}, []int{1, 2})
	pages, err := BuildPages(s, fakePoints(linear), TableOptions{MaxCores: 2})
	require.NoError(t, err)
	require.Len(t, pages, 1)

	var plain bytes.Buffer
	require.NoError(t, WriteLaTeX(&plain, pages[0], false))
	lines := strings.Split(strings.TrimSpace(plain.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `ins t\_ins & 20.00 & 2.00 & 4.00 & 1.00 & 40.00 & 2.00 & 8.00 & 2.00 \\`, lines[0])
	assert.NotContains(t, plain.String(), "tabular")

	var wrapped bytes.Buffer
	require.NoError(t, WriteLaTeX(&wrapped, pages[0], true))
	out := wrapped.String()
	assert.True(t, strings.HasPrefix(out, `\begin{tabular}{l|rrrr|rrrr}`))
	assert.Contains(t, out, `\multicolumn{4}{c|}{folly}`)
	assert.Contains(t, out, `\multicolumn{4}{c}{paGrowT}`)
	assert.True(t, strings.HasSuffix(out, "\\end{tabular}\n"))
}

func TestPagePath(t *testing.T) {
	assert.Equal(t, "out/table.1.tex", PagePath("out/table", 1))
	assert.Equal(t, "out/table.2.tex", PagePath("out/table.tex", 2))
}

func TestStyleFor(t *testing.T) {
	for _, id := range []string{"f", "c", "r", "s", "g", "j", "t"} {
		a, b := StyleFor(id), StyleFor(id)
		assert.Equal(t, a.RGBA(), b.RGBA(), id)
		assert.Equal(t, a.Shape, b.Shape, id)
		assert.True(t, a.Color.IsValid(), id)
	}
}

func TestSummary(t *testing.T) {
	s := newSweep(t, []string{"f", "g"}, []int{1, 2})
	metrics, rows, err := RelativeThroughput(s, fakePoints(linear))
	require.NoError(t, err)

	out := Summary("folly", metrics, rows)
	assert.Contains(t, out, "paGrowT")
	assert.Contains(t, out, "ins:t_find_+")
	assert.Contains(t, out, "0.50")
}

func aggregated(t *testing.T, s *sweep.Sweep) *aggregate.Points {
	t.Helper()
	data := sweep.NewDataset(s)
	for _, k := range data.Keys() {
		elapsed := 100.0 / float64(k.Threads)
		if k.Variant == "g" {
			elapsed /= 2
		}
		data.Append(k, 1)
		data.Append(k, elapsed)
	}
	points, err := aggregate.NewAggregator(s, nil).Aggregate(data)
	require.NoError(t, err)
	return points
}

func TestEmit(t *testing.T) {
	s := newSweep(t, []string{"f", "s", "g"}, []int{1, 2, 4})
	dir := t.TempDir()

	r := New(s, aggregated(t, s), Options{
		OutputDir: dir,
		Table:     &TableOptions{Output: filepath.Join(dir, "tex", "speedup"), PageSize: 4, MaxCores: 4, Headers: true},
	}, nil)

	arts, err := r.Emit(context.Background())
	require.NoError(t, err)

	require.Len(t, arts.Plots, 3)
	assert.Equal(t, filepath.Join(dir, "ins_t_find_plus.png"), arts.Plots[2])
	for _, p := range arts.Files() {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.NotZero(t, info.Size(), p)
	}

	assert.Equal(t, filepath.Join(dir, RelativeFileName), arts.Relative)
	require.Len(t, arts.Rows, 1)
	for _, ratio := range arts.Rows[0].Ratios {
		assert.InDelta(t, 0.5, ratio, 1e-9)
	}
	assert.Equal(t, []string{filepath.Join(dir, "tex", "speedup.1.tex")}, arts.Tables)
}

func TestEmit_TabularFailureIsFatal(t *testing.T) {
	s := newSweep(t, []string{"f", "s", "g"}, []int{1, 2})

	r := New(s, aggregated(t, s), Options{
		OutputDir: t.TempDir(),
		Table:     &TableOptions{Output: "unused", MaxCores: 8},
	}, nil)

	_, err := r.Emit(context.Background())
	assert.ErrorIs(t, err, ErrMissingThreadCount)
}
