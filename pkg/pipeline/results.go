package pipeline

import (
	"time"

	"github.com/justjake/tablebench/pkg/parse"
	"github.com/justjake/tablebench/pkg/report"
	"github.com/justjake/tablebench/pkg/sweep"
)

// Results is the top-level structure for results.json.
type Results struct {
	ExecutionID string            `json:"execution_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Duration    time.Duration     `json:"duration"`
	Runner      string            `json:"runner"`
	Git         *GitMetadata      `json:"git,omitempty"`
	Config      any               `json:"config,omitempty"`
	Sweep       SweepSummary      `json:"sweep"`
	Runs        []KindResult      `json:"runs"`
	Points      []PointResult     `json:"points"`
	Relative    []RelativeResult  `json:"relative"`
	Artifacts   *report.Artifacts `json:"artifacts,omitempty"`
}

// SweepSummary is the resolved sweep, after defaults and validation.
type SweepSummary struct {
	Kinds     []string     `json:"kinds"`
	Tables    []string     `json:"tables"`
	Threads   []int        `json:"threads"`
	Params    sweep.Params `json:"params"`
	Reference string       `json:"reference,omitempty"`
	Baseline  string       `json:"baseline,omitempty"`
}

// KindResult covers one benchmark kind: its script, its run and its log.
type KindResult struct {
	Kind     string      `json:"kind"`
	Script   string      `json:"script,omitempty"`
	Commands int         `json:"commands"`
	Reused   bool        `json:"reused"`
	Run      *RunResult  `json:"run,omitempty"`
	Log      string      `json:"log"`
	Parse    parse.Stats `json:"parse"`
}

// PointResult is one aggregated throughput.
type PointResult struct {
	Kind       string  `json:"kind"`
	Column     string  `json:"column"`
	Table      string  `json:"table"`
	Threads    int     `json:"threads"`
	Throughput float64 `json:"throughput"`
	Unit       string  `json:"unit"`
}

// RelativeResult is one relative throughput ratio.
type RelativeResult struct {
	Table  string  `json:"table"`
	Metric string  `json:"metric"`
	Ratio  float64 `json:"ratio"`
}

func summarize(s *sweep.Sweep) SweepSummary {
	sum := SweepSummary{
		Threads: s.Threads(),
		Params:  s.Params(),
	}
	for _, k := range s.Kinds() {
		sum.Kinds = append(sum.Kinds, k.Name)
	}
	for _, v := range s.Variants() {
		sum.Tables = append(sum.Tables, v.Name)
	}
	if v, ok := s.Reference(); ok {
		sum.Reference = v.Name
	}
	if v, ok := s.Baseline(); ok {
		sum.Baseline = v.Name
	}
	return sum
}
