// Package pipeline drives a full benchmark sweep: it generates the scripts,
// runs them one at a time, parses their logs, aggregates the results and
// emits every report into a per-run output directory.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/justjake/tablebench/pkg/aggregate"
	"github.com/justjake/tablebench/pkg/observability"
	"github.com/justjake/tablebench/pkg/parse"
	"github.com/justjake/tablebench/pkg/report"
	"github.com/justjake/tablebench/pkg/script"
	"github.com/justjake/tablebench/pkg/sweep"
)

// Options configures one pipeline run.
type Options struct {
	Sweep *sweep.Sweep

	// WorkDir holds the generated scripts and their logs. Relative binary
	// paths in the scripts resolve against it.
	WorkDir string
	// OutputDir is the base directory; each run writes to a timestamped
	// subdirectory and points the "latest" symlink at it.
	OutputDir string

	// Timeout bounds each script. Zero means no limit.
	Timeout time.Duration
	// ReuseLogs skips generation and execution and parses the logs already
	// in WorkDir.
	ReuseLogs bool

	Scale      float64
	PlotFormat string
	// Table enables the LaTeX report. A relative Output is resolved against
	// the run's output directory.
	Table *report.TableOptions

	// Config is recorded verbatim in results.json.
	Config any
}

// Orchestrator runs the staged pipeline:
// generate → run → parse → aggregate → report.
type Orchestrator struct {
	// Options is the run configuration.
	Options Options

	// Runner is the script execution backend.
	Runner BenchRunner

	// Metrics collects pipeline metrics. May be nil.
	Metrics *observability.Metrics

	// Logger for orchestrator messages.
	Logger *slog.Logger

	// Console receives the relative throughput summary. May be nil.
	Console io.Writer

	executionID string
	outputDir   string
	workDir     string
}

// NewOrchestrator creates a new Orchestrator with the shell runner.
func NewOrchestrator(opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		Options: opts,
		Runner:  NewScriptRunner(),
		Metrics: observability.NewMetrics(),
		Logger:  logger,
	}
}

// Run executes every stage. Any stage failure aborts the run; there is no
// partial report.
func (o *Orchestrator) Run(ctx context.Context) (*Results, error) {
	start := time.Now()
	s := o.Options.Sweep
	if s == nil {
		return nil, fmt.Errorf("no sweep configured")
	}

	o.executionID = generateExecutionID()
	o.Logger.Info("starting benchmark run",
		"execution_id", o.executionID,
		"runner", o.Runner.Name(),
		"kinds", len(s.Kinds()),
		"tables", len(s.Variants()),
		"threads", s.Threads(),
		"reuse_logs", o.Options.ReuseLogs,
	)
	o.Metrics.SetMaxThreads(s.MaxThreads())

	workDir, err := filepath.Abs(o.Options.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work dir: %w", err)
	}
	o.workDir = workDir

	if err := o.initOutputDir(); err != nil {
		return nil, fmt.Errorf("failed to init output dir: %w", err)
	}

	// Update latest symlink immediately so users can monitor progress
	if err := o.updateLatestSymlink(); err != nil {
		o.Logger.Warn("failed to update latest symlink", "error", err)
	}

	results := &Results{
		ExecutionID: o.executionID,
		Timestamp:   start,
		Runner:      o.Runner.Name(),
		Config:      o.Options.Config,
		Sweep:       summarize(s),
	}

	gitDir := s.Params().BinDir
	if gitDir == "" || !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(o.workDir, gitDir)
	}
	if git, err := GetGitMetadata(ctx, gitDir); err != nil {
		o.Logger.Debug("no git metadata for binaries", "dir", gitDir, "error", err)
	} else {
		results.Git = git
	}

	runs, err := o.generate(s)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	results.Runs = runs

	if err := o.execute(ctx, results.Runs); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	data, err := o.parse(s, results.Runs)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	points, err := o.aggregate(s, data)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	results.Points = pointResults(points, o.unit())

	arts, err := o.report(ctx, s, points)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	results.Artifacts = arts
	results.Relative = relativeResults(arts)

	if o.Console != nil && len(arts.Rows) > 0 {
		if base, ok := s.Baseline(); ok {
			fmt.Fprintln(o.Console, report.Summary(base.Name, arts.Metrics, arts.Rows))
		}
	}

	results.Duration = time.Since(start)

	if err := o.writeResults(results); err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}
	if o.Metrics != nil {
		if err := o.Metrics.WriteTextfile(filepath.Join(o.outputDir, "metrics.prom")); err != nil {
			o.Logger.Warn("failed to write metrics", "error", err)
		}
	}
	if err := o.generateBenchmarkReport(results); err != nil {
		o.Logger.Warn("failed to generate benchmark report", "error", err)
	}

	o.Logger.Info("benchmark run complete",
		"execution_id", o.executionID,
		"duration", results.Duration.Round(time.Millisecond),
		"points", len(results.Points),
		"output_dir", o.outputDir)
	return results, nil
}

// generate writes one script per kind. Every script is built before any
// file is touched, so an unknown kind or table leaves WorkDir unchanged.
func (o *Orchestrator) generate(s *sweep.Sweep) ([]KindResult, error) {
	defer o.stage("generate")()

	runs := make([]KindResult, 0, len(s.Kinds()))
	if o.Options.ReuseLogs {
		for _, k := range s.Kinds() {
			runs = append(runs, KindResult{
				Kind:   k.Name,
				Reused: true,
				Log:    filepath.Join(o.workDir, k.LogName()),
			})
		}
		o.Logger.Info("reusing existing logs", "dir", o.workDir)
		return runs, nil
	}

	scripts, err := script.GenerateAll(s)
	if err != nil {
		return nil, err
	}
	for _, sc := range scripts {
		path, err := sc.WriteToDir(o.workDir)
		if err != nil {
			return nil, err
		}
		o.Metrics.RecordScript(sc.Kind.Name, sc.Commands())
		o.Logger.Info("generated script", "kind", sc.Kind.Name, "path", path, "commands", sc.Commands())
		runs = append(runs, KindResult{
			Kind:     sc.Kind.Name,
			Script:   path,
			Commands: sc.Commands(),
			Log:      filepath.Join(o.workDir, sc.Kind.LogName()),
		})
	}
	return runs, nil
}

// execute runs the scripts sequentially. The first failure stops the sweep.
func (o *Orchestrator) execute(ctx context.Context, runs []KindResult) error {
	if o.Options.ReuseLogs {
		return nil
	}
	defer o.stage("run")()

	for i := range runs {
		run := &runs[i]
		kind, err := o.kindByName(run.Kind)
		if err != nil {
			return err
		}

		o.Logger.Info("running benchmark",
			"kind", kind.Name,
			"progress", fmt.Sprintf("%d/%d", i+1, len(runs)),
			"commands", run.Commands)

		res, err := o.Runner.Run(ctx, RunConfig{
			Kind:       kind,
			ScriptPath: run.Script,
			LogPath:    run.Log,
			Dir:        o.workDir,
			Timeout:    o.Options.Timeout,
		})
		run.Run = res
		if res != nil {
			o.Metrics.RecordRun(kind.Name, res.Duration, res.ExitCode, err == nil)
		}
		if err != nil {
			o.Logger.Error("benchmark failed", "kind", kind.Name, "log", run.Log, "error", err)
			return err
		}
		o.Logger.Info("benchmark finished",
			"kind", kind.Name,
			"duration", res.Duration.Round(time.Millisecond),
			"log", run.Log)
	}
	return nil
}

func (o *Orchestrator) parse(s *sweep.Sweep, runs []KindResult) (*sweep.Dataset, error) {
	defer o.stage("parse")()

	data := sweep.NewDataset(s)
	for i := range runs {
		run := &runs[i]
		kind, err := o.kindByName(run.Kind)
		if err != nil {
			return nil, err
		}
		stats, err := parse.ParseFile(run.Log, s, kind, data)
		if err != nil {
			return nil, err
		}
		run.Parse = stats

		for disposition, n := range map[string]int{
			"delimiter": stats.Delimiters,
			"header":    stats.Headers,
			"record":    stats.Records,
			"skipped":   stats.Skipped,
			"malformed": stats.Malformed,
			"unrouted":  stats.Unrouted,
		} {
			o.Metrics.RecordLogLines(kind.Name, disposition, n)
		}

		level := slog.LevelInfo
		if stats.Malformed > 0 || stats.Unrouted > 0 {
			level = slog.LevelWarn
		}
		o.Logger.Log(context.Background(), level, "parsed log",
			"kind", kind.Name,
			"lines", stats.Lines,
			"records", stats.Records,
			"skipped", stats.Skipped,
			"malformed", stats.Malformed,
			"unrouted", stats.Unrouted)
	}
	return data, nil
}

func (o *Orchestrator) aggregate(s *sweep.Sweep, data *sweep.Dataset) (*aggregate.Points, error) {
	defer o.stage("aggregate")()

	agg := aggregate.NewAggregator(s, o.Logger)
	if o.Options.Scale != 0 {
		agg.Scale = o.Options.Scale
	}
	points, err := agg.Aggregate(data)
	if err != nil {
		return nil, err
	}

	perKind := make(map[string]int)
	for _, k := range points.Keys() {
		perKind[k.Kind]++
	}
	for _, k := range s.Kinds() {
		o.Metrics.RecordPoints(k.Name, perKind[k.ID])
	}
	return points, nil
}

func (o *Orchestrator) report(ctx context.Context, s *sweep.Sweep, points *aggregate.Points) (*report.Artifacts, error) {
	defer o.stage("report")()

	opts := report.Options{
		OutputDir:  o.outputDir,
		PlotFormat: o.Options.PlotFormat,
		Unit:       o.unit(),
	}
	if t := o.Options.Table; t != nil && t.Output != "" {
		table := *t
		if !filepath.IsAbs(table.Output) {
			table.Output = filepath.Join(o.outputDir, table.Output)
		}
		opts.Table = &table
	}

	arts, err := report.New(s, points, opts, o.Logger).Emit(ctx)
	if err != nil {
		return nil, err
	}
	o.Metrics.RecordArtifacts("plot", len(arts.Plots))
	o.Metrics.RecordArtifacts("relative", 1)
	o.Metrics.RecordArtifacts("table", len(arts.Tables))
	return arts, nil
}

// stage logs and records the duration of a pipeline stage.
func (o *Orchestrator) stage(name string) func() {
	start := time.Now()
	o.Logger.Debug("stage started", "stage", name)
	return func() {
		d := time.Since(start)
		o.Metrics.RecordStage(name, d)
		o.Logger.Debug("stage finished", "stage", name, "duration", d.Round(time.Millisecond))
	}
}

func (o *Orchestrator) kindByName(name string) (sweep.Kind, error) {
	for _, k := range o.Options.Sweep.Kinds() {
		if k.Name == name {
			return k, nil
		}
	}
	return sweep.Kind{}, fmt.Errorf("%w: %q", sweep.ErrUnknownKind, name)
}

func (o *Orchestrator) unit() string {
	if o.Options.Scale == 0 || o.Options.Scale == aggregate.DefaultScale {
		return aggregate.Unit
	}
	return fmt.Sprintf("ops/ms ÷ %g", o.Options.Scale)
}

// initOutputDir creates the output directory for this benchmark run.
func (o *Orchestrator) initOutputDir() error {
	timestamp := time.Now().Format("2006-01-02T15-04-05")
	dirName := fmt.Sprintf("%s-%s", timestamp, o.executionID[:8])

	baseDir := o.Options.OutputDir
	if baseDir == "" {
		baseDir = filepath.Join(o.workDir, "out")
	}

	o.outputDir = filepath.Join(baseDir, dirName)

	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	o.Logger.Info("created output directory", "path", o.outputDir)
	return nil
}

// writeResults writes the results.json file.
func (o *Orchestrator) writeResults(results *Results) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(o.outputDir, "results.json"), data, 0644)
}

// updateLatestSymlink updates the "latest" symlink to point to this run.
func (o *Orchestrator) updateLatestSymlink() error {
	latestPath := filepath.Join(filepath.Dir(o.outputDir), "latest")

	// Remove existing symlink (ignore error if doesn't exist)
	_ = os.Remove(latestPath)

	// Create new symlink (relative path)
	return os.Symlink(filepath.Base(o.outputDir), latestPath)
}

// OutputDir returns the path to the output directory for this run.
func (o *Orchestrator) OutputDir() string {
	return o.outputDir
}

// ExecutionID returns the unique execution ID for this run.
func (o *Orchestrator) ExecutionID() string {
	return o.executionID
}

// generateExecutionID generates a unique execution ID.
func generateExecutionID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b) // crypto/rand.Read always succeeds on modern systems
	return hex.EncodeToString(b)
}

func pointResults(points *aggregate.Points, unit string) []PointResult {
	out := make([]PointResult, 0, points.Len())
	for _, k := range points.Keys() {
		v, _ := points.Get(k)
		kind, err := sweep.LookupKind(k.Kind)
		if err != nil {
			continue
		}
		table := k.Variant
		if name, err := sweep.LookupVariantName(k.Variant); err == nil {
			table = name
		}
		out = append(out, PointResult{
			Kind:       kind.Name,
			Column:     k.Column,
			Table:      table,
			Threads:    k.Threads,
			Throughput: v,
			Unit:       unit,
		})
	}
	return out
}

func relativeResults(arts *report.Artifacts) []RelativeResult {
	var out []RelativeResult
	for _, row := range arts.Rows {
		for i, r := range row.Ratios {
			out = append(out, RelativeResult{Table: row.Table, Metric: arts.Metrics[i].String(), Ratio: r})
		}
	}
	return out
}
