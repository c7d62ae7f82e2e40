package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/justjake/tablebench/pkg/sweep"
)

var (
	// ErrTimeout is returned when a script exceeds its configured timeout.
	ErrTimeout = errors.New("benchmark script timed out")
	// ErrScriptFailed is returned when a script exits with a non-zero status.
	ErrScriptFailed = errors.New("benchmark script failed")
)

// BenchRunner executes one generated script and captures its output.
// This interface allows the shell to be swapped out, e.g. for canned logs in tests.
type BenchRunner interface {
	// Run executes the script for cfg.Kind, writing combined output to cfg.LogPath.
	Run(ctx context.Context, cfg RunConfig) (*RunResult, error)

	// Name returns the name of this runner (e.g., "sh").
	Name() string
}

// RunConfig configures one script execution.
type RunConfig struct {
	Kind sweep.Kind
	// ScriptPath is the script to run, relative to Dir or absolute.
	ScriptPath string
	// LogPath receives combined stdout and stderr. Any previous log is truncated.
	LogPath string
	// Dir is the working directory of the script.
	Dir string
	// Timeout bounds the whole script. Zero means no limit.
	Timeout time.Duration
	// Env is appended to the current environment.
	Env []string
}

// RunResult describes one finished script execution.
type RunResult struct {
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code"`
	LogPath  string        `json:"log_path"`
}

// ScriptRunner runs scripts with a POSIX shell.
type ScriptRunner struct {
	// Shell is the interpreter. If empty, uses /bin/sh.
	Shell string
}

// NewScriptRunner creates a new ScriptRunner.
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{}
}

// Name returns the runner name.
func (r *ScriptRunner) Name() string {
	return "sh"
}

// Run executes the script and blocks until it exits. The script and every
// benchmark binary it started are killed when ctx is cancelled or the
// timeout expires.
func (r *ScriptRunner) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	logFile, err := os.Create(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	cmd := exec.CommandContext(runCtx, shell, cfg.ScriptPath)
	cmd.Dir = cfg.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.WaitDelay = 5 * time.Second
	killProcessGroup(cmd)

	startTime := time.Now()
	err = cmd.Run()
	result := &RunResult{
		Duration: time.Since(startTime),
		LogPath:  cfg.LogPath,
	}

	// Get exit code
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		return result, fmt.Errorf("%s benchmark interrupted: %w", cfg.Kind.Name, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return result, fmt.Errorf("%w: %s after %s", ErrTimeout, cfg.Kind.Name, cfg.Timeout)
	default:
		return result, fmt.Errorf("%w: %s exited with status %d: %w", ErrScriptFailed, cfg.Kind.Name, result.ExitCode, err)
	}
}
