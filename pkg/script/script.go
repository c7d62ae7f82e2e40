// Package script generates the shell scripts that drive a benchmark sweep.
// There is one script per benchmark kind. Each one announces every table with a
// TABLE delimiter and then invokes the kind's binary once per thread count.
package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/justjake/tablebench/pkg/sweep"
)

// Line is one line of a generated script: either a table delimiter or a command.
type Line struct {
	// Table is set for delimiter lines.
	Table string
	// Command is set for benchmark invocations.
	Command string
}

// IsDelimiter reports whether the line announces a table.
func (l Line) IsDelimiter() bool { return l.Table != "" }

// Script is the generated command sequence for one benchmark kind.
type Script struct {
	Kind  sweep.Kind
	Lines []Line
}

// Commands returns the number of benchmark invocations in the script.
func (s *Script) Commands() int {
	n := 0
	for _, l := range s.Lines {
		if !l.IsDelimiter() {
			n++
		}
	}
	return n
}

// WriteTo renders the script as POSIX shell.
func (s *Script) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# %s benchmark sweep\n", s.Kind.Name)
	for _, l := range s.Lines {
		if l.IsDelimiter() {
			fmt.Fprintf(&b, "echo \"TABLE: %s\"\n", l.Table)
			continue
		}
		b.WriteString(l.Command)
		b.WriteString("\n")
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Generate builds the script for one kind of the sweep.
func Generate(s *sweep.Sweep, kind sweep.Kind) (*Script, error) {
	script := &Script{Kind: kind}
	for _, v := range s.Variants() {
		if _, err := sweep.LookupVariantName(v.ID); err != nil {
			return nil, err
		}
		script.Lines = append(script.Lines, Line{Table: v.Name})
		for _, p := range s.ThreadsFor(v) {
			cmd, err := command(kind, v, p, s.Params())
			if err != nil {
				return nil, err
			}
			script.Lines = append(script.Lines, Line{Command: cmd})
		}
	}
	return script, nil
}

// GenerateAll builds every script of the sweep. Nothing is returned unless
// every kind and table resolved.
func GenerateAll(s *sweep.Sweep) ([]*Script, error) {
	var scripts []*Script
	for _, k := range s.Kinds() {
		script, err := Generate(s, k)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k.Name, err)
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// WriteToDir replaces <dir>/<kind>_benchmark.sh with the rendered script and
// marks it executable. It returns the script path.
func (s *Script) WriteToDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create script directory: %w", err)
	}

	path := filepath.Join(dir, s.Kind.ScriptName())
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove previous script: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := s.WriteTo(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	// OpenFile's mode is masked by umask
	if err := os.Chmod(path, 0755); err != nil {
		return "", fmt.Errorf("failed to mark %s executable: %w", path, err)
	}
	return path, nil
}

func command(kind sweep.Kind, v sweep.Variant, threads int, p sweep.Params) (string, error) {
	binary := filepath.Join(binDir(p), kind.Name, kind.Name+"_full_"+v.Name)
	if !filepath.IsAbs(binary) && !strings.HasPrefix(binary, "../") {
		// keep sh from searching PATH
		binary = "./" + binary
	}
	args := []string{shellQuote(binary), "-n", itoa(p.ElementCount)}

	switch kind.ID {
	case "i":
		if p.Capacity > 0 {
			args = append(args, "-c", itoa(p.Capacity))
		}
		args = append(args, "-p", strconv.Itoa(threads), "-it", strconv.Itoa(p.Trials()))
	case "d":
		args = append(args, "-p", strconv.Itoa(threads), "-it", strconv.Itoa(p.Trials()))
	case "m":
		capacity := p.Capacity
		if capacity <= 0 {
			capacity = p.ElementCount
		}
		args = append(args,
			"-c", itoa(capacity),
			"-stream", itoa(p.StreamSize),
			"-p", strconv.Itoa(threads),
			"-it", strconv.Itoa(p.Trials()),
			"-wperc", strconv.FormatFloat(p.WritePercent, 'g', -1, 64),
		)
	case "c":
		if p.Capacity > 0 {
			args = append(args, "-c", itoa(p.Capacity))
		}
		args = append(args, "-p", strconv.Itoa(threads), "-it", strconv.Itoa(p.Trials()))
		if p.DistFile != "" {
			args = append(args, "-file", shellQuote(p.DistFile))
		}
	default:
		return "", fmt.Errorf("%w: %q", sweep.ErrUnknownKind, kind.ID)
	}

	return strings.Join(args, " "), nil
}

func binDir(p sweep.Params) string {
	if p.BinDir == "" {
		return "."
	}
	return p.BinDir
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// shellQuote single-quotes s when it contains anything but safe path characters.
func shellQuote(s string) string {
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("/._-+", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
