//go:build windows

package local

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/ruffel/cexec"
)

// killProcessGroup kills the process tree rooted at pid.
//
// TODO(windows): Use Job Objects so that children started with a detached
// console are also reached; taskkill /T only follows the parent links.
func killProcessGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}

// setProcessGroup is a no-op until Job Objects are used.
func setProcessGroup(_ *exec.Cmd) {}

func startPTY(_ *exec.Cmd) (*os.File, error) {
	return nil, fmt.Errorf("pseudo-terminals: %w", cexec.ErrNotSupported)
}
