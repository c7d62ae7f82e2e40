package sweep

import (
	"fmt"
	"strings"
)

// Metric is one (benchmark kind, column) pair.
type Metric struct {
	Kind   Kind
	Column string
}

// Key returns the dataset key for this metric, variant and thread count.
func (m Metric) Key(variant string, threads int) Key {
	return Key{Kind: m.Kind.ID, Column: m.Column, Variant: variant, Threads: threads}
}

// Slug is a file-name-safe identifier such as "ins_t_find_plus".
func (m Metric) Slug() string {
	col := strings.NewReplacer("+", "plus", "-", "minus").Replace(m.Column)
	return m.Kind.Name + "_" + col
}

func (m Metric) String() string {
	return m.Kind.Name + ":" + m.Column
}

// Key identifies one raw series or aggregated point.
type Key struct {
	Kind    string // kind ID
	Column  string
	Variant string // variant ID
	Threads int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/p=%d", k.Kind, k.Column, k.Variant, k.Threads)
}

// Series is the append-only list of raw values for one key, in file order.
type Series struct {
	Values []float64
}

// Len returns the number of captured trials.
func (s *Series) Len() int { return len(s.Values) }

// Dataset holds every raw series of a sweep. Series are created empty by
// NewDataset and only ever appended to.
type Dataset struct {
	series map[Key]*Series
	keys   []Key
}

// NewDataset creates an empty series for every key the sweep will execute.
func NewDataset(s *Sweep) *Dataset {
	d := &Dataset{series: make(map[Key]*Series)}
	for _, m := range s.Metrics() {
		for _, v := range s.variants {
			for _, p := range s.ThreadsFor(v) {
				k := m.Key(v.ID, p)
				d.series[k] = &Series{}
				d.keys = append(d.keys, k)
			}
		}
	}
	return d
}

// Append adds a value to the series for k. It reports false if the sweep
// has no such series.
func (d *Dataset) Append(k Key, v float64) bool {
	s, ok := d.series[k]
	if !ok {
		return false
	}
	s.Values = append(s.Values, v)
	return true
}

// Series returns the series for k.
func (d *Dataset) Series(k Key) (*Series, bool) {
	s, ok := d.series[k]
	return s, ok
}

// Keys returns every key in deterministic setup order.
func (d *Dataset) Keys() []Key {
	out := make([]Key, len(d.keys))
	copy(out, d.keys)
	return out
}
