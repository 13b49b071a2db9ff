//go:build !windows

package probe

import (
	"os/exec"
	"syscall"
)

// configureProcess starts the server in its own process group so that
// killing it also stops children spawned by wrappers such as npx.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
}

// killProcessGroup kills every process in cmd's group. The group outlives
// its leader while any member is alive, so this is safe after Wait.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
