// Package aggregate reduces raw benchmark series to one throughput value per
// (kind, column, table, thread count).
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/perf/benchmath"

	"github.com/justjake/tablebench/pkg/sweep"
)

// DefaultScale converts elapsed milliseconds into Mops/s.
const DefaultScale = 1000

// Unit is the throughput unit produced with DefaultScale.
const Unit = "Mops/s"

var (
	// ErrInsufficientData is returned when a series has no trials left after
	// the warm-up trial is discarded.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidElapsed is returned for non-positive elapsed times.
	ErrInvalidElapsed = errors.New("elapsed time must be positive")
)

// Throughput converts one elapsed time into operations per unit time:
// workload * multiplier / (scale * elapsed).
func Throughput(kind sweep.Kind, p sweep.Params, scale, elapsed float64) (float64, error) {
	if elapsed <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidElapsed, elapsed)
	}
	workload := float64(p.ElementCount)
	if kind.Workload == sweep.StreamWorkload {
		workload = float64(p.StreamSize)
	}
	mult := kind.OpsMultiplier
	if mult == 0 {
		mult = 1
	}
	return workload * mult / (scale * elapsed), nil
}

// Median returns the median of values. It does not modify values.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrInsufficientData
	}
	// NewSample sorts in place
	sample := benchmath.NewSample(slices.Clone(values), &benchmath.DefaultThresholds)
	return benchmath.AssumeNothing.Summary(sample, 0.95).Center, nil
}

// Points holds one aggregated throughput per key.
type Points struct {
	values map[sweep.Key]float64
	keys   []sweep.Key
}

func newPoints() *Points {
	return &Points{values: make(map[sweep.Key]float64)}
}

func (p *Points) set(k sweep.Key, v float64) {
	if _, ok := p.values[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.values[k] = v
}

// Get returns the point for k.
func (p *Points) Get(k sweep.Key) (float64, bool) {
	v, ok := p.values[k]
	return v, ok
}

// At returns the point for a metric, variant and thread count.
func (p *Points) At(m sweep.Metric, variant string, threads int) (float64, bool) {
	return p.Get(m.Key(variant, threads))
}

// Keys returns every key in the order it was aggregated.
func (p *Points) Keys() []sweep.Key {
	return slices.Clone(p.keys)
}

// Len returns the number of points.
func (p *Points) Len() int { return len(p.values) }

// Aggregator turns a populated dataset into Points.
type Aggregator struct {
	Sweep *sweep.Sweep
	// Scale divides every elapsed time; DefaultScale yields Mops/s from milliseconds.
	Scale  float64
	Logger *slog.Logger
}

// NewAggregator creates an Aggregator with the default scale.
func NewAggregator(s *sweep.Sweep, logger *slog.Logger) *Aggregator {
	return &Aggregator{Sweep: s, Scale: DefaultScale, Logger: logger}
}

// Aggregate computes every point. The reference variant's single-threaded
// point is reused at every swept thread count.
func (a *Aggregator) Aggregate(data *sweep.Dataset) (*Points, error) {
	scale := a.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	params := a.Sweep.Params()
	points := newPoints()

	for _, m := range a.Sweep.Metrics() {
		for _, v := range a.Sweep.Variants() {
			for _, threads := range a.Sweep.ThreadsFor(v) {
				key := m.Key(v.ID, threads)
				series, ok := data.Series(key)
				if !ok {
					return nil, fmt.Errorf("%s: no series", key)
				}
				if series.Len() != params.Trials() {
					logger.Warn("unexpected trial count",
						"series", key.String(),
						"got", series.Len(),
						"want", params.Trials())
				}
				value, err := a.reduce(m.Kind, params, scale, series.Values)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				points.set(key, value)
			}

			if v.Class != sweep.ReferenceOnly {
				continue
			}
			serial, ok := points.Get(m.Key(v.ID, 1))
			if !ok {
				return nil, fmt.Errorf("%s: reference %s has no single-threaded point", m, v.Name)
			}
			for _, threads := range a.Sweep.Threads() {
				points.set(m.Key(v.ID, threads), serial)
			}
		}
	}

	logger.Info("aggregated points", "points", points.Len())
	return points, nil
}

// reduce drops the warm-up trial and returns the median throughput of the rest.
func (a *Aggregator) reduce(kind sweep.Kind, p sweep.Params, scale float64, raw []float64) (float64, error) {
	if len(raw) < 2 {
		return 0, fmt.Errorf("%w: %d trials captured, need at least 2", ErrInsufficientData, len(raw))
	}
	trials := raw[1:]
	throughputs := make([]float64, len(trials))
	for i, elapsed := range trials {
		t, err := Throughput(kind, p, scale, elapsed)
		if err != nil {
			return 0, err
		}
		throughputs[i] = t
	}
	return Median(throughputs)
}
