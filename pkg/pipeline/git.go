package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitMetadata ties a run to the checkout its benchmark binaries were built
// from.
type GitMetadata struct {
	SHA      string `json:"sha"`
	ShortSHA string `json:"short_sha"`
	// Branch is empty on a detached HEAD.
	Branch string `json:"branch,omitempty"`
	// Dirty ignores untracked files; build output usually is untracked.
	Dirty bool `json:"dirty"`
	// Root is the top level of the work tree containing the binaries.
	Root string `json:"root"`
}

// GetGitMetadata inspects the work tree containing dir.
func GetGitMetadata(ctx context.Context, dir string) (*GitMetadata, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	out, err := git(ctx, abs, "rev-parse", "--show-toplevel", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("%s is not in a git work tree: %w", abs, err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		return nil, fmt.Errorf("unexpected rev-parse output %q", out)
	}
	meta := &GitMetadata{Root: lines[0], SHA: lines[1]}
	meta.ShortSHA = meta.SHA[:min(7, len(meta.SHA))]

	// symbolic-ref fails quietly on a detached HEAD
	if branch, err := git(ctx, abs, "symbolic-ref", "--short", "-q", "HEAD"); err == nil {
		meta.Branch = branch
	}
	if status, err := git(ctx, abs, "status", "--porcelain", "--untracked-files=no"); err == nil {
		meta.Dirty = status != ""
	}
	return meta, nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *GitMetadata) String() string {
	if g == nil {
		return "unknown"
	}
	ref := g.Branch
	if ref == "" {
		ref = "detached"
	}
	s := ref + "@" + g.ShortSHA
	if g.Dirty {
		s += " (dirty)"
	}
	return s
}
