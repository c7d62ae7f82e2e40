package aggregate

import (
	"testing"

	"github.com/justjake/tablebench/pkg/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kind(t *testing.T, id string) sweep.Kind {
	t.Helper()
	k, err := sweep.LookupKind(id)
	require.NoError(t, err)
	return k
}

func TestThroughput(t *testing.T) {
	p := sweep.Params{ElementCount: 1000000, StreamSize: 4000000}

	tests := []struct {
		name    string
		kind    string
		elapsed float64
		want    float64
	}{
		{"insert", "i", 12.0, 1000000.0 / (1000 * 12.0)},
		{"contention", "c", 50.0, 1000000.0 / (1000 * 50.0)},
		{"delete counts paired operations", "d", 10.0, 2 * 1000000.0 / (1000 * 10.0)},
		{"mix uses stream size", "m", 40.0, 4000000.0 / (1000 * 40.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Throughput(kind(t, tt.kind), p, DefaultScale, tt.elapsed)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	_, err := Throughput(kind(t, "i"), p, DefaultScale, 0)
	assert.ErrorIs(t, err, ErrInvalidElapsed)
}

func TestMedian(t *testing.T) {
	v, err := Median([]float64{5, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	input := []float64{9, 2, 7, 4, 5}
	v, err = Median(input)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, []float64{9, 2, 7, 4, 5}, input, "input must not be reordered")

	v, err = Median([]float64{42})
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	_, err = Median(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func newSweep(t *testing.T, kinds []string, iterations int) *sweep.Sweep {
	t.Helper()
	s, err := sweep.New(sweep.Spec{
		Kinds:     kinds,
		Variants:  []string{"f", "s", "g"},
		Threads:   []int{1, 2, 4, 8},
		Params:    sweep.Params{ElementCount: 1000000, StreamSize: 2000000, Iterations: iterations},
		Reference: "s",
		Baseline:  "f",
	})
	require.NoError(t, err)
	return s
}

func fill(data *sweep.Dataset, values func(k sweep.Key) []float64) {
	for _, k := range data.Keys() {
		for _, v := range values(k) {
			data.Append(k, v)
		}
	}
}

func TestAggregate_DropsWarmupAndTakesMedian(t *testing.T) {
	s := newSweep(t, []string{"m"}, 1)
	data := sweep.NewDataset(s)
	fill(data, func(sweep.Key) []float64 { return []float64{10.0, 12.0} })

	points, err := NewAggregator(s, nil).Aggregate(data)
	require.NoError(t, err)

	m := s.Metrics()[0]
	got, ok := points.At(m, "g", 4)
	require.True(t, ok)
	assert.InDelta(t, 2000000.0/(1000*12.0), got, 1e-12)
}

func TestAggregate_InsertExample(t *testing.T) {
	s := newSweep(t, []string{"i"}, 1)
	data := sweep.NewDataset(s)
	fill(data, func(sweep.Key) []float64 { return []float64{10.0, 12.0} })

	points, err := NewAggregator(s, nil).Aggregate(data)
	require.NoError(t, err)

	for _, m := range s.Metrics() {
		got, ok := points.At(m, "f", 1)
		require.True(t, ok)
		assert.InDelta(t, 1000000.0/(1000*12.0), got, 1e-12, "metric %s", m)
	}
}

func TestAggregate_MedianOfMeasuredTrials(t *testing.T) {
	s := newSweep(t, []string{"d"}, 3)
	data := sweep.NewDataset(s)
	// the 1.0 warm-up would dominate if it were kept
	fill(data, func(sweep.Key) []float64 { return []float64{1.0, 20.0, 10.0, 40.0} })

	points, err := NewAggregator(s, nil).Aggregate(data)
	require.NoError(t, err)

	got, ok := points.At(s.Metrics()[0], "g", 8)
	require.True(t, ok)
	assert.InDelta(t, 2*1000000.0/(1000*20.0), got, 1e-12)
}

func TestAggregate_ReferenceReusedAcrossThreads(t *testing.T) {
	s := newSweep(t, []string{"i"}, 2)
	data := sweep.NewDataset(s)
	fill(data, func(k sweep.Key) []float64 {
		if k.Variant == "s" {
			return []float64{3, 5, 5}
		}
		return []float64{9, float64(k.Threads), float64(k.Threads)}
	})

	points, err := NewAggregator(s, nil).Aggregate(data)
	require.NoError(t, err)

	for _, m := range s.Metrics() {
		serial, ok := points.At(m, "s", 1)
		require.True(t, ok)
		for _, p := range []int{1, 2, 4, 8} {
			got, ok := points.At(m, "s", p)
			require.True(t, ok, "reference point at p=%d", p)
			assert.Equal(t, serial, got)
		}
	}

	// 3 metrics × (2 measured variants × 4 threads + reference at 4 threads)
	assert.Equal(t, 3*(2*4+4), points.Len())
}

func TestAggregate_InsufficientData(t *testing.T) {
	s := newSweep(t, []string{"i"}, 1)
	data := sweep.NewDataset(s)
	fill(data, func(k sweep.Key) []float64 {
		if k.Variant == "g" && k.Threads == 4 {
			// truncated log: only the warm-up trial made it out
			return []float64{10}
		}
		return []float64{10, 12}
	})

	_, err := NewAggregator(s, nil).Aggregate(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "i/t_ins/g/p=4")
}

func TestAggregate_EmptyDataset(t *testing.T) {
	s := newSweep(t, []string{"c"}, 1)
	_, err := NewAggregator(s, nil).Aggregate(sweep.NewDataset(s))
	assert.ErrorIs(t, err, ErrInsufficientData)
}
