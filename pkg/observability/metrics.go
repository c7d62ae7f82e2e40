package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one tablebench run.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	ScriptRunsTotal *prometheus.CounterVec
	LogLinesTotal   *prometheus.CounterVec
	ArtifactsTotal  *prometheus.CounterVec

	// Gauges
	ScriptCommands  *prometheus.GaugeVec
	ScriptExitCode  *prometheus.GaugeVec
	PointsTotal     *prometheus.GaugeVec
	SweepThreadsMax prometheus.Gauge

	// Histograms
	ScriptDuration *prometheus.HistogramVec
	StageDuration  *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on a private registry,
// so repeated runs in one process (and tests) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Counters
		ScriptRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablebench_script_runs_total",
				Help: "Total number of benchmark script executions",
			},
			[]string{"kind", "status"},
		),
		LogLinesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablebench_log_lines_total",
				Help: "Benchmark log lines by parser disposition",
			},
			[]string{"kind", "disposition"},
		),
		ArtifactsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablebench_artifacts_total",
				Help: "Report files written",
			},
			[]string{"type"},
		),

		// Gauges
		ScriptCommands: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tablebench_script_commands",
				Help: "Benchmark invocations in each generated script",
			},
			[]string{"kind"},
		),
		ScriptExitCode: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tablebench_script_exit_code",
				Help: "Exit status of the last run of each script",
			},
			[]string{"kind"},
		),
		PointsTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tablebench_points",
				Help: "Aggregated throughput points",
			},
			[]string{"kind"},
		),
		SweepThreadsMax: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tablebench_sweep_threads_max",
				Help: "Highest thread count in the sweep",
			},
		),

		// Histograms
		ScriptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tablebench_script_duration_seconds",
				Help:    "Wall time of each benchmark script",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
			},
			[]string{"kind"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tablebench_stage_duration_seconds",
				Help:    "Wall time of each pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 12), // 1ms to ~70min
			},
			[]string{"stage"},
		),
	}
}

// Registry returns the registry every metric is registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordScript records the number of commands in a generated script.
func (m *Metrics) RecordScript(kind string, commands int) {
	if m == nil {
		return
	}
	m.ScriptCommands.WithLabelValues(kind).Set(float64(commands))
}

// RecordRun records one script execution.
func (m *Metrics) RecordRun(kind string, d time.Duration, exitCode int, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.ScriptRunsTotal.WithLabelValues(kind, status).Inc()
	m.ScriptExitCode.WithLabelValues(kind).Set(float64(exitCode))
	m.ScriptDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordLogLines adds n lines with the given parser disposition.
func (m *Metrics) RecordLogLines(kind, disposition string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.LogLinesTotal.WithLabelValues(kind, disposition).Add(float64(n))
}

// RecordPoints sets the number of aggregated points for a kind.
func (m *Metrics) RecordPoints(kind string, n int) {
	if m == nil {
		return
	}
	m.PointsTotal.WithLabelValues(kind).Set(float64(n))
}

// RecordArtifacts counts written report files.
func (m *Metrics) RecordArtifacts(typ string, n int) {
	if m == nil {
		return
	}
	m.ArtifactsTotal.WithLabelValues(typ).Add(float64(n))
}

// RecordStage records how long a pipeline stage took.
func (m *Metrics) RecordStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetMaxThreads records the sweep's highest thread count.
func (m *Metrics) SetMaxThreads(n int) {
	if m == nil {
		return
	}
	m.SweepThreadsMax.Set(float64(n))
}

// WriteTextfile writes every metric in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
