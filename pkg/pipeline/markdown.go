package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// generateBenchmarkReport creates a BENCHMARK.md file summarizing the results.
func (o *Orchestrator) generateBenchmarkReport(results *Results) error {
	var b strings.Builder

	// Write header
	b.WriteString("# Benchmark Results\n\n")
	fmt.Fprintf(&b, "**Execution ID:** `%s`\n\n", results.ExecutionID)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", results.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Duration:** %s\n\n", results.Duration.Round(time.Second))
	if results.Git != nil {
		fmt.Fprintf(&b, "**Binaries:** `%s` at `%s`\n\n", results.Git, results.Git.Root)
	}

	// Write configuration summary
	sw := results.Sweep
	b.WriteString("## Configuration\n\n")
	b.WriteString("| Setting | Value |\n")
	b.WriteString("|---------|-------|\n")
	fmt.Fprintf(&b, "| Benchmarks | %s |\n", strings.Join(sw.Kinds, ", "))
	fmt.Fprintf(&b, "| Tables | %s |\n", strings.Join(sw.Tables, ", "))
	fmt.Fprintf(&b, "| Threads | %s |\n", joinInts(sw.Threads))
	fmt.Fprintf(&b, "| Elements | %d |\n", sw.Params.ElementCount)
	if sw.Params.Capacity > 0 {
		fmt.Fprintf(&b, "| Capacity | %d |\n", sw.Params.Capacity)
	}
	fmt.Fprintf(&b, "| Stream size | %d |\n", sw.Params.StreamSize)
	fmt.Fprintf(&b, "| Write percent | %g |\n", sw.Params.WritePercent)
	fmt.Fprintf(&b, "| Iterations | %d (+1 warm-up) |\n", sw.Params.Iterations)
	if sw.Params.DistFile != "" {
		fmt.Fprintf(&b, "| Key distribution | `%s` |\n", sw.Params.DistFile)
	}
	if sw.Reference != "" {
		fmt.Fprintf(&b, "| Reference | %s |\n", sw.Reference)
	}
	if sw.Baseline != "" {
		fmt.Fprintf(&b, "| Baseline | %s |\n", sw.Baseline)
	}
	b.WriteString("\n")

	// Write per-kind runs
	b.WriteString("## Runs\n\n")
	b.WriteString("| Benchmark | Commands | Duration | Exit | Records | Skipped | Malformed | Unrouted |\n")
	b.WriteString("|-----------|----------|----------|------|---------|---------|-----------|----------|\n")
	for _, r := range results.Runs {
		duration, exit := "reused", "-"
		if r.Run != nil {
			duration = r.Run.Duration.Round(time.Millisecond).String()
			exit = fmt.Sprintf("%d", r.Run.ExitCode)
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %d | %d | %d | %d |\n",
			r.Kind, r.Commands, duration, exit,
			r.Parse.Records, r.Parse.Skipped, r.Parse.Malformed, r.Parse.Unrouted)
	}
	b.WriteString("\n")

	// Write throughput at the highest thread count
	if n := len(sw.Threads); n > 0 {
		maxThreads := sw.Threads[n-1]
		fmt.Fprintf(&b, "## Throughput at %d threads\n\n", maxThreads)
		b.WriteString("| Benchmark | Column | Table | Throughput |\n")
		b.WriteString("|-----------|--------|-------|------------|\n")
		for _, p := range results.Points {
			if p.Threads != maxThreads {
				continue
			}
			fmt.Fprintf(&b, "| %s | `%s` | %s | %.3f %s |\n", p.Kind, p.Column, p.Table, p.Throughput, p.Unit)
		}
		b.WriteString("\n")
	}

	if len(results.Relative) > 0 {
		fmt.Fprintf(&b, "## Relative Throughput (%s ÷ table)\n\n", sw.Baseline)
		b.WriteString("| Table | Metric | Ratio |\n")
		b.WriteString("|-------|--------|-------|\n")
		for _, r := range results.Relative {
			fmt.Fprintf(&b, "| %s | `%s` | %.3f |\n", r.Table, r.Metric, r.Ratio)
		}
		b.WriteString("\n")
	}

	// Write file listing
	b.WriteString("## Output Files\n\n")
	b.WriteString("| File | Description |\n")
	b.WriteString("|------|-------------|\n")
	fmt.Fprintf(&b, "| `BENCHMARK.md` | %s |\n", describeOutputFile("BENCHMARK.md"))

	var files []string
	_ = filepath.WalkDir(o.outputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(o.outputDir, path); err == nil && rel != "BENCHMARK.md" {
			files = append(files, rel)
		}
		return nil
	})
	for _, file := range files {
		fmt.Fprintf(&b, "| `%s` | %s |\n", file, describeOutputFile(filepath.Base(file)))
	}

	// Write to file
	reportPath := filepath.Join(o.outputDir, "BENCHMARK.md")
	if err := os.WriteFile(reportPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	o.Logger.Info("generated benchmark report", "path", reportPath)
	return nil
}

// describeOutputFile returns a human-readable description for a benchmark output file.
func describeOutputFile(filename string) string {
	// Exact matches
	descriptions := map[string]string{
		"BENCHMARK.md":            "This benchmark report",
		"results.json":            "Full benchmark results in JSON format (for programmatic analysis)",
		"metrics.prom":            "Pipeline metrics in Prometheus text format",
		"relative_throughput.tsv": "Baseline throughput divided by each table's, at the highest thread count",
	}

	if desc, ok := descriptions[filename]; ok {
		return desc
	}

	// Pattern matches
	ext := filepath.Ext(filename)
	switch ext {
	case ".png", ".svg", ".pdf", ".eps", ".jpg", ".jpeg", ".tif", ".tiff":
		slug := strings.TrimSuffix(filename, ext)
		return fmt.Sprintf("Throughput vs. threads chart for `%s`", slug)

	case ".tex":
		return "LaTeX speed-up table page"

	default:
		return "Benchmark artifact"
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
