package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()

	m.RecordScript("ins", 9)
	m.RecordRun("ins", 3*time.Second, 0, true)
	m.RecordRun("del", time.Second, 2, false)
	m.RecordLogLines("ins", "records", 12)
	m.RecordLogLines("ins", "skipped", 0)
	m.RecordPoints("ins", 27)
	m.RecordArtifacts("plot", 3)
	m.SetMaxThreads(16)

	assert.Equal(t, 9.0, testutil.ToFloat64(m.ScriptCommands.WithLabelValues("ins")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScriptRunsTotal.WithLabelValues("ins", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScriptRunsTotal.WithLabelValues("del", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScriptExitCode.WithLabelValues("del")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.LogLinesTotal.WithLabelValues("ins", "records")))
	assert.Equal(t, 27.0, testutil.ToFloat64(m.PointsTotal.WithLabelValues("ins")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ArtifactsTotal.WithLabelValues("plot")))
	assert.Equal(t, 16.0, testutil.ToFloat64(m.SweepThreadsMax))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordScript("ins", 1)
		m.RecordRun("ins", time.Second, 0, true)
		m.RecordLogLines("ins", "records", 1)
		m.RecordPoints("ins", 1)
		m.RecordArtifacts("plot", 1)
		m.RecordStage("parse", time.Second)
		m.SetMaxThreads(1)
	})
}

func TestMetrics_PrivateRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordPoints("ins", 5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PointsTotal.WithLabelValues("ins")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordScript("mix", 4)
	m.RecordStage("generate", 5*time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `tablebench_script_commands{kind="mix"} 4`)
	assert.Contains(t, string(b), `tablebench_stage_duration_seconds_count{stage="generate"} 1`)
}

func TestMetricsServer(t *testing.T) {
	assert.Nil(t, NewMetricsServer("", "", NewMetrics(), nil))

	var disabled *MetricsServer
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Start())
	assert.Equal(t, "MetricsServer(disabled)", disabled.String())

	m := NewMetrics()
	m.SetMaxThreads(8)
	s := NewMetricsServer("127.0.0.1:0", "", m, slog.New(slog.DiscardHandler))
	require.True(t, s.Enabled())
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + s.Addr() + DefaultMetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tablebench_sweep_threads_max 8")
}
