package parse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justjake/tablebench/pkg/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insHeader = " #i  p        n      cap     t_ins  t_find_-  t_find_+ errors"

func insSweep(t *testing.T) (*sweep.Sweep, sweep.Kind) {
	t.Helper()
	s, err := sweep.New(sweep.Spec{
		Kinds:     []string{"i"},
		Variants:  []string{"f", "s"},
		Threads:   []int{1, 2},
		Params:    sweep.Params{ElementCount: 1000000, Iterations: 1},
		Reference: "s",
		Baseline:  "f",
	})
	require.NoError(t, err)
	return s, s.Kinds()[0]
}

func dataLine(i, p int, ins, findMinus, findPlus float64) string {
	return fmt.Sprintf("%3d%3d%9d%9d%10.3f%10.3f%10.3f%7d", i, p, 1000000, 1000000, ins, findMinus, findPlus, 0)
}

func parseString(t *testing.T, log string) (*sweep.Dataset, Stats) {
	t.Helper()
	s, k := insSweep(t)
	data := sweep.NewDataset(s)
	stats, err := Parse(strings.NewReader(log), s, k, data)
	require.NoError(t, err)
	return data, stats
}

func values(t *testing.T, data *sweep.Dataset, col, variant string, threads int) []float64 {
	t.Helper()
	series, ok := data.Series(sweep.Key{Kind: "i", Column: col, Variant: variant, Threads: threads})
	require.True(t, ok)
	return series.Values
}

func TestParse_SeriesLengthMatchesDataLines(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			lines := []string{"TABLE: folly", insHeader}
			for i := range n {
				lines = append(lines, dataLine(i, 2, float64(10+i), float64(20+i), float64(30+i)))
			}
			data, stats := parseString(t, strings.Join(lines, "\n")+"\n")

			assert.Equal(t, n, stats.Records)
			ins := values(t, data, "t_ins", "f", 2)
			minus := values(t, data, "t_find_-", "f", 2)
			plus := values(t, data, "t_find_+", "f", 2)
			require.Len(t, ins, n)
			require.Len(t, minus, n)
			require.Len(t, plus, n)
			for i := range n {
				assert.Equal(t, float64(10+i), ins[i], "file order")
				assert.Equal(t, float64(20+i), minus[i])
				assert.Equal(t, float64(30+i), plus[i])
			}
		})
	}
}

func TestParse_NoiseDoesNotChangeSeries(t *testing.T) {
	clean := strings.Join([]string{
		"TABLE: folly",
		insHeader,
		dataLine(0, 1, 10, 1, 2),
		dataLine(1, 1, 12, 1, 2),
		"TABLE: ska",
		insHeader,
		dataLine(0, 1, 7, 1, 2),
		dataLine(1, 1, 8, 1, 2),
	}, "\n")

	noisy := strings.Join([]string{
		"dist/zipf.txt",
		"TABLE: folly",
		"erro insert  ",
		insHeader,
		"threshold 1.5",
		dataLine(0, 1, 10, 1, 2),
		"a b c d e f g h",
		"1 2 3",
		dataLine(1, 1, 12, 1, 2),
		"",
		"TABLE: ska",
		"total size of keys1000000",
		insHeader,
		dataLine(0, 1, 7, 1, 2),
		"key 12345678",
		dataLine(1, 1, 8, 1, 2),
		"trailing diagnostic line with far too many tokens to ever be a record",
	}, "\n")

	cleanData, cleanStats := parseString(t, clean)
	noisyData, noisyStats := parseString(t, noisy)

	for _, k := range cleanData.Keys() {
		want, _ := cleanData.Series(k)
		got, _ := noisyData.Series(k)
		assert.Equal(t, want.Values, got.Values, "series %s", k)
	}
	assert.Equal(t, []float64{10, 12}, values(t, noisyData, "t_ins", "f", 1))
	assert.Equal(t, []float64{7, 8}, values(t, noisyData, "t_ins", "s", 1))

	assert.Equal(t, cleanStats.Records, noisyStats.Records)
	assert.Equal(t, 0, cleanStats.Skipped)
	assert.Equal(t, 8, noisyStats.Skipped)
	assert.Equal(t, 1, noisyStats.Malformed, "8-token noise line")
	assert.Equal(t, len(strings.Split(noisy, "\n")), noisyStats.Lines)
}

func TestParse_LengthMismatchExcluded(t *testing.T) {
	log := strings.Join([]string{
		"TABLE: folly",
		insHeader,
		dataLine(0, 1, 10, 1, 2),
		dataLine(1, 1, 12, 1, 2) + " 99",
		"  2  1  1000000  1000000  13.0  1.0",
	}, "\n")

	data, stats := parseString(t, log)
	assert.Equal(t, []float64{10}, values(t, data, "t_ins", "f", 1))
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 2, stats.Skipped)
}

func TestParse_Unrouted(t *testing.T) {
	log := strings.Join([]string{
		"TABLE: folly",
		insHeader,
		dataLine(0, 16, 10, 1, 2), // thread count not swept
		"TABLE: cuckoo",            // table not selected
		insHeader,
		dataLine(0, 1, 10, 1, 2),
		"TABLE: ska",
		insHeader,
		dataLine(0, 2, 10, 1, 2), // reference is never run multi-threaded
	}, "\n")

	data, stats := parseString(t, log)
	assert.Equal(t, 3, stats.Unrouted)
	assert.Equal(t, 0, stats.Records)
	for _, k := range data.Keys() {
		s, _ := data.Series(k)
		assert.Zero(t, s.Len(), "series %s", k)
	}
}

func TestParser_StateTransitions(t *testing.T) {
	s, k := insSweep(t)
	p := NewParser(s, k, sweep.NewDataset(s))

	assert.Equal(t, AwaitTable, p.State())

	p.Feed(insHeader)
	assert.Equal(t, AwaitTable, p.State(), "header before any table is ignored")
	p.Feed(dataLine(0, 1, 10, 1, 2))
	assert.Equal(t, AwaitTable, p.State())

	p.Feed("TABLE: folly")
	assert.Equal(t, AwaitHeader, p.State())
	p.Feed(dataLine(0, 1, 10, 1, 2))
	assert.Equal(t, AwaitHeader, p.State(), "data before header is skipped")
	p.Feed("some diagnostic")
	assert.Equal(t, AwaitHeader, p.State())

	p.Feed(insHeader)
	assert.Equal(t, AwaitData, p.State())
	p.Feed(dataLine(0, 1, 10, 1, 2))
	assert.Equal(t, AwaitData, p.State())
	p.Feed("noise")
	assert.Equal(t, AwaitData, p.State())

	p.Feed(insHeader)
	assert.Equal(t, AwaitData, p.State())

	p.Feed("TABLE: ska")
	assert.Equal(t, AwaitHeader, p.State())

	stats := p.Stats()
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 2, stats.Delimiters)
	assert.Equal(t, 2, stats.Headers)
	assert.Equal(t, 5, stats.Skipped)
	assert.Equal(t, 10, stats.Lines)
}

func TestRecord_Accessors(t *testing.T) {
	rec := Record{Table: "folly", Fields: map[string]string{"p": "4", "t_ins": "12.5", "errors": "x"}}

	p, err := rec.Threads()
	require.NoError(t, err)
	assert.Equal(t, 4, p)

	v, err := rec.Float("t_ins")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = rec.Float("errors")
	assert.Error(t, err)
	_, err = rec.Float("missing")
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	s, k := insSweep(t)
	path := filepath.Join(t.TempDir(), k.LogName())
	require.NoError(t, os.WriteFile(path, []byte("TABLE: folly\n"+insHeader+"\n"+dataLine(0, 1, 3, 4, 5)+"\n"), 0644))

	data := sweep.NewDataset(s)
	stats, err := ParseFile(path, s, k, data)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.out"), s, k, data)
	assert.Error(t, err)
}
