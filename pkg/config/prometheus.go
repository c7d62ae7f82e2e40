package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	defaultMetricsListen = ":9090"
	defaultMetricsPath   = "/metrics"
)

// MetricsConfig enables serving the run's Prometheus metrics over HTTP while
// the sweep executes. metrics.prom is written at the end of every run
// whether or not this is set.
type MetricsConfig struct {
	// Listen is "host:port" or ":port". Default: ":9090".
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
	// Path is the scrape path. Default: "/metrics".
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

func (c *MetricsConfig) GetListen() string {
	if c.Listen == "" {
		return defaultMetricsListen
	}
	return c.Listen
}

func (c *MetricsConfig) GetPath() string {
	if c.Path == "" {
		return defaultMetricsPath
	}
	return c.Path
}

// Validate checks the listen address has a port and the path is absolute.
func (c *MetricsConfig) Validate() error {
	var errs []error
	if _, port, err := net.SplitHostPort(c.GetListen()); err != nil || port == "" {
		errs = append(errs, fmt.Errorf("listen address %q needs a port, e.g. \":9090\"", c.GetListen()))
	}
	if !strings.HasPrefix(c.GetPath(), "/") {
		errs = append(errs, fmt.Errorf("path %q must start with '/'", c.GetPath()))
	}
	return errors.Join(errs...)
}

// ParseMetricsListen turns a -metrics-addr value of the form
// "host:port[/path]" into a MetricsConfig. An empty value disables serving.
func ParseMetricsListen(s string) *MetricsConfig {
	if s == "" {
		return nil
	}
	addr, path, found := strings.Cut(s, "/")
	c := &MetricsConfig{Listen: addr, Path: defaultMetricsPath}
	if found {
		c.Path = "/" + path
	}
	return c
}
