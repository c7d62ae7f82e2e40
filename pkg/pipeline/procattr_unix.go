//go:build unix

package pipeline

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs the shell in its own process group so cancellation
// also reaches the benchmark binary it is waiting on.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
