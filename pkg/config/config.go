// Package config handles interpreting the tablebench config file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/justjake/tablebench/pkg/sweep"
)

// Format is a config file encoding.
type Format int

const (
	JSON Format = iota
	YAML
)

// FormatForPath picks the encoding from a file extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Config holds the tablebench configuration.
type Config struct {
	// Benchmarks is a string of kind IDs, e.g. "idmc".
	Benchmarks string `json:"benchmarks" yaml:"benchmarks"`
	// Tables is a string of table IDs, e.g. "frsgc".
	Tables  string  `json:"tables" yaml:"tables"`
	Threads Threads `json:"threads" yaml:"threads"`

	Elements     Count   `json:"elements" yaml:"elements"`
	Capacity     Count   `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	StreamSize   Count   `json:"stream_size" yaml:"stream_size"`
	Iterations   int     `json:"iterations" yaml:"iterations"`
	WritePercent float64 `json:"write_percent" yaml:"write_percent"`
	DistFile     string  `json:"dist_file,omitempty" yaml:"dist_file,omitempty"`

	// BinDir holds <kind>/<kind>_full_<table> binaries.
	BinDir string `json:"bin_dir,omitempty" yaml:"bin_dir,omitempty"`
	// WorkDir holds the generated scripts and their logs.
	WorkDir   string `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	Reference string `json:"reference" yaml:"reference"`
	Baseline  string `json:"baseline" yaml:"baseline"`

	Scale      float64  `json:"scale" yaml:"scale"`
	PlotFormat string   `json:"plot_format" yaml:"plot_format"`
	Timeout    Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ReuseLogs  bool     `json:"reuse_logs,omitempty" yaml:"reuse_logs,omitempty"`

	Table   *TableConfig   `json:"table,omitempty" yaml:"table,omitempty"`
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// TableConfig configures the paginated LaTeX report.
// The report is only written when Output is set.
type TableConfig struct {
	Output   string `json:"output" yaml:"output"`
	PageSize int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	MaxCores int    `json:"max_cores" yaml:"max_cores"`
	Headers  bool   `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Default returns a Config with the defaults of the benchmark binaries.
func Default() *Config {
	return &Config{
		Tables:       "frsgc",
		Elements:     10 * Mega,
		StreamSize:   40 * Mega,
		Iterations:   5,
		WritePercent: 0.1,
		BinDir:       ".",
		WorkDir:      ".",
		OutputDir:    "out/tablebench",
		Reference:    "s",
		Baseline:     "f",
		Scale:        1000,
		PlotFormat:   "png",
	}
}

// ParseConfig parses a configuration document over the defaults.
func ParseConfig(data []byte, format Format) (*Config, error) {
	cfg := Default()
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ReadConfigFile reads and parses a configuration file from the given path.
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate verifies the configuration is valid. It does not stop at the
// first error; all errors are accumulated and returned together. Cross-field
// sweep rules (thread ordering, reference placement, unknown IDs) are checked
// by Sweep.
func (c *Config) Validate() error {
	var errs []error

	if c.Benchmarks == "" {
		errs = append(errs, errors.New("benchmarks: no benchmark selected"))
	}
	if c.Tables == "" {
		errs = append(errs, errors.New("tables: no table selected"))
	}
	if _, err := c.Threads.Counts(); err != nil {
		errs = append(errs, err)
	}
	if c.Elements <= 0 {
		errs = append(errs, fmt.Errorf("elements: must be positive, got %d", c.Elements))
	}
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("capacity: must not be negative, got %d", c.Capacity))
	}
	if strings.ContainsRune(c.Benchmarks, 'm') && c.StreamSize <= 0 {
		errs = append(errs, fmt.Errorf("stream_size: must be positive for the mix benchmark, got %d", c.StreamSize))
	}
	if c.Iterations < 1 {
		errs = append(errs, fmt.Errorf("iterations: must be at least 1, got %d", c.Iterations))
	}
	if c.WritePercent < 0 || c.WritePercent > 1 {
		errs = append(errs, fmt.Errorf("write_percent: must be within [0, 1], got %g", c.WritePercent))
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale: must be positive, got %g", c.Scale))
	}
	switch c.PlotFormat {
	case "png", "svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff":
	default:
		errs = append(errs, fmt.Errorf("plot_format: unsupported format %q", c.PlotFormat))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: must not be negative, got %s", c.Timeout))
	}
	if c.Table != nil && c.Table.Output != "" {
		if c.Table.MaxCores < 1 {
			errs = append(errs, fmt.Errorf("table.max_cores: must be positive, got %d", c.Table.MaxCores))
		}
		if c.Table.PageSize < 0 {
			errs = append(errs, fmt.Errorf("table.page_size: must not be negative, got %d", c.Table.PageSize))
		}
	}
	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Sweep validates the configuration and builds the sweep it describes.
func (c *Config) Sweep() (*sweep.Sweep, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	threads, err := c.Threads.Counts()
	if err != nil {
		return nil, err
	}
	return sweep.New(sweep.Spec{
		Kinds:    ids(c.Benchmarks),
		Variants: ids(c.Tables),
		Threads:  threads,
		Params: sweep.Params{
			ElementCount: c.Elements.Int64(),
			Capacity:     c.Capacity.Int64(),
			StreamSize:   c.StreamSize.Int64(),
			WritePercent: c.WritePercent,
			Iterations:   c.Iterations,
			DistFile:     c.DistFile,
			BinDir:       c.BinDir,
		},
		Reference: c.Reference,
		Baseline:  c.Baseline,
	})
}

// ids splits a string of one-letter IDs, ignoring separators.
func ids(s string) []string {
	var out []string
	for _, r := range s {
		if r == ',' || r == ' ' {
			continue
		}
		out = append(out, string(r))
	}
	return out
}
