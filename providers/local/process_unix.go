//go:build !windows

package local

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// killProcessGroup kills the process group with the given PID.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// setProcessGroup sets the process group for the given command.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// startPTY starts cmd as the leader of a new session whose controlling
// terminal is a fresh pty. Being a session leader also makes it a group
// leader, so killProcessGroup still reaches its children.
func startPTY(cmd *exec.Cmd) (*os.File, error) {
	return pty.Start(cmd)
}
