// Command tablebench generates, runs and reports hash table benchmark sweeps.
//
// Usage:
//
//	tablebench -b idmc -lp 1,2,4,8        # insert, delete, mix and contains at 1-8 threads
//	tablebench -b i -rp 1,64 -n 1M         # inserts, doubling from 1 to 64 threads
//	tablebench -config sweep.yaml -reuse-logs
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"

	"github.com/justjake/tablebench/pkg/config"
	"github.com/justjake/tablebench/pkg/observability"
	"github.com/justjake/tablebench/pkg/pipeline"
	"github.com/justjake/tablebench/pkg/report"
)

//go:embed README.md
var readmeMarkdown string

var bannerLines = []string{
	` __        __    __     __                  __  `,
	`/ /_____ _/ /_  / /__  / /_  ___  ____  ____/ /_ `,
	`/ __/ __ '/ __ \/ / _ \/ __ \/ _ \/ __ \/ ___/ __ \`,
	`/ /_/ /_/ / /_/ / /  __/ /_/ /  __/ / / / /__/ / / /`,
	`\__/\__,_/_.___/_/\___/_.___/\___/_/ /_/\___/_/ /_/ `,
}

func printBanner() {
	// Gradient from teal to purple
	teal, _ := colorful.Hex("#00CED1")
	purple, _ := colorful.Hex("#9B30FF")
	bgColor := lipgloss.Color("#1a1a2e")

	maxWidth := 0
	for _, line := range bannerLines {
		maxWidth = max(maxWidth, len(line))
	}

	var lines []string
	for _, line := range bannerLines {
		line += strings.Repeat(" ", maxWidth-len(line))
		var result strings.Builder
		for i, r := range line {
			t := float64(i) / float64(maxWidth-1)
			c := teal.BlendLuv(purple, t)
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(c.Hex())).
				Background(bgColor).
				Bold(true)
			result.WriteString(style.Render(string(r)))
		}
		lines = append(lines, result.String())
	}

	box := lipgloss.NewStyle().
		Background(bgColor).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	fmt.Println(box)
	fmt.Println()
}

var (
	// Styles for usage output
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00CED1"))

	descStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	flagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9B30FF")).
			Bold(true)

	exampleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

func printUsage() {
	fmt.Println(titleStyle.Render("Usage:"))
	fmt.Print("  tablebench ")
	flag.VisitAll(func(f *flag.Flag) {
		if f.Name == "help" {
			return
		}
		fmt.Printf("%s ", flagStyle.Render("-"+f.Name))
	})
	fmt.Println()
	fmt.Println()

	fmt.Println(titleStyle.Render("Options:"))
	flag.VisitAll(func(f *flag.Flag) {
		typeName := fmt.Sprintf("%T", f.Value)
		// *flag.stringValue -> string, *config.Count -> Count
		typeName = strings.TrimPrefix(typeName, "*flag.")
		typeName = strings.TrimPrefix(typeName, "*config.")
		typeName = strings.TrimSuffix(typeName, "Value")

		fmt.Printf("  %s %s\n",
			flagStyle.Render("-"+f.Name),
			descStyle.Render(typeName))
		fmt.Printf("      %s\n", f.Usage)
	})
	fmt.Println()

	fmt.Println(titleStyle.Render("Examples:"))
	fmt.Println(exampleStyle.Render("  tablebench -b idmc -lp 1,2,4,8 -n 10M"))
	fmt.Println(exampleStyle.Render("  tablebench -config sweep.yaml -table-out speedup -max-cores 64"))
	fmt.Println()

	fmt.Println(descStyle.Render("Run 'tablebench -help' for full documentation."))
	fmt.Println()
}

func printFullDocs() {
	// Get terminal width, default to 80 if not a terminal
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Fallback to raw markdown
		fmt.Println(readmeMarkdown)
		return
	}

	out, err := renderer.Render(readmeMarkdown)
	if err != nil {
		// Fallback to raw markdown
		fmt.Println(readmeMarkdown)
		return
	}

	fmt.Print(out)
}

func main() {
	var (
		elements, capacity, streamSize config.Count
		timeout                        config.Duration
	)

	configPath := flag.String("config", "", "path to a JSON or YAML sweep config; flags override its fields")
	benchmarks := flag.String("b", "", "benchmarks to run: i(nsert) d(elete) m(ix) c(ontains)")
	tables := flag.String("t", "", "tables to benchmark and graph (default \"frsgc\")")
	threadList := flag.String("lp", "", "thread counts as a list, e.g. \"1,2,4,12\"")
	threadRange := flag.String("rp", "", "thread counts as a doubling range, e.g. \"1,64\"")
	flag.Var(&elements, "n", "number of elements inserted (e.g. 10M, 16Mi)")
	flag.Var(&capacity, "c", "initial table capacity (0 = sized by the binary)")
	iterations := flag.Int("it", 0, "trials per measurement; the first is discarded as warm-up (default 5)")
	flag.Var(&streamSize, "stream", "operations in the mix benchmark stream (default 40M)")
	writePercent := flag.Float64("wperc", 0, "write fraction of the mix benchmark stream (default 0.1)")
	distFile := flag.String("file", "", "key distribution file for the mix benchmark")
	binDir := flag.String("bin", "", "directory holding <kind>/<kind>_full_<table> binaries")
	workDir := flag.String("work", "", "directory for generated scripts and their logs")
	outputDir := flag.String("out", "", "output directory for reports (default out/tablebench/<timestamp>)")
	plotFormat := flag.String("format", "", "plot image format: png, svg, pdf, eps, jpg, tif")
	tableOut := flag.String("table-out", "", "write paginated LaTeX speed-up tables to <table-out>.<n>.tex")
	pageSize := flag.Int("page-size", 0, "tables per LaTeX page (default 4)")
	maxCores := flag.Int("max-cores", 0, "core count bounding the best-throughput window of the LaTeX tables")
	tableHeaders := flag.Bool("table-headers", false, "wrap each LaTeX page in a tabular environment")
	reuseLogs := flag.Bool("reuse-logs", false, "parse logs left by a previous run instead of running scripts")
	flag.Var(&timeout, "timeout", "kill a benchmark script that runs longer than this (0 = no limit)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics while running, as host:port[/path]")
	jsonLogs := flag.Bool("json", false, "output logs in JSON format")
	showHelp := flag.Bool("help", false, "show full documentation")
	flag.Usage = printUsage
	flag.Parse()

	// Show full docs with -help
	if *showHelp {
		printFullDocs()
		os.Exit(0)
	}

	// Set up logger
	var handler slog.Handler
	if *jsonLogs {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.ReadConfigFile(*configPath)
		if err != nil {
			logger.Error("failed to read config", "error", err)
			os.Exit(1)
		}
	}

	// Only flags given on the command line override the config file.
	var flagErrs []error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "b":
			cfg.Benchmarks = *benchmarks
		case "t":
			cfg.Tables = *tables
		case "lp":
			list, err := config.ParseThreadList(*threadList)
			if err != nil {
				flagErrs = append(flagErrs, fmt.Errorf("-lp: %w", err))
				return
			}
			cfg.Threads = config.Threads{List: list}
		case "rp":
			r, err := config.ParseThreadRange(*threadRange)
			if err != nil {
				flagErrs = append(flagErrs, fmt.Errorf("-rp: %w", err))
				return
			}
			cfg.Threads = config.Threads{Range: r}
		case "n":
			cfg.Elements = elements
		case "c":
			cfg.Capacity = capacity
		case "it":
			cfg.Iterations = *iterations
		case "stream":
			cfg.StreamSize = streamSize
		case "wperc":
			cfg.WritePercent = *writePercent
		case "file":
			cfg.DistFile = *distFile
		case "bin":
			cfg.BinDir = *binDir
		case "work":
			cfg.WorkDir = *workDir
		case "out":
			cfg.OutputDir = *outputDir
		case "format":
			cfg.PlotFormat = *plotFormat
		case "table-out", "page-size", "max-cores", "table-headers":
			if cfg.Table == nil {
				cfg.Table = &config.TableConfig{}
			}
			switch f.Name {
			case "table-out":
				cfg.Table.Output = *tableOut
			case "page-size":
				cfg.Table.PageSize = *pageSize
			case "max-cores":
				cfg.Table.MaxCores = *maxCores
			case "table-headers":
				cfg.Table.Headers = *tableHeaders
			}
		case "reuse-logs":
			cfg.ReuseLogs = *reuseLogs
		case "timeout":
			cfg.Timeout = timeout
		case "metrics-addr":
			cfg.Metrics = config.ParseMetricsListen(*metricsAddr)
		}
	})
	if len(flagErrs) > 0 {
		for _, err := range flagErrs {
			logger.Error("invalid flag", "error", err)
		}
		os.Exit(1)
	}

	// Show compact usage when nothing was selected
	if cfg.Benchmarks == "" {
		printBanner()
		printUsage()
		os.Exit(1)
	}

	s, err := cfg.Sweep()
	if err != nil {
		logger.Error("config validation failed", "error", err)
		os.Exit(1)
	}

	opts := pipeline.Options{
		Sweep:      s,
		WorkDir:    cfg.WorkDir,
		OutputDir:  cfg.OutputDir,
		Timeout:    cfg.Timeout.Duration(),
		ReuseLogs:  cfg.ReuseLogs,
		Scale:      cfg.Scale,
		PlotFormat: cfg.PlotFormat,
		Config:     cfg,
	}
	if cfg.Table != nil && cfg.Table.Output != "" {
		opts.Table = &report.TableOptions{
			Output:   cfg.Table.Output,
			PageSize: cfg.Table.PageSize,
			MaxCores: cfg.Table.MaxCores,
			Headers:  cfg.Table.Headers,
		}
	}

	orchestrator := pipeline.NewOrchestrator(opts, logger)
	orchestrator.Console = os.Stdout

	// Set up context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics != nil {
		srv := observability.NewMetricsServer(cfg.Metrics.GetListen(), cfg.Metrics.GetPath(), orchestrator.Metrics, logger)
		if err := srv.Start(); err != nil {
			logger.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	results, err := orchestrator.Run(ctx)
	if err != nil {
		logger.Error("benchmark failed", "error", err)
		stop()
		os.Exit(1)
	}

	for _, run := range results.Runs {
		logger.Info("kind results",
			"kind", run.Kind,
			"records", run.Parse.Records,
			"malformed", run.Parse.Malformed)
	}

	fmt.Printf("\nResults written to: %s\n", orchestrator.OutputDir())
}
