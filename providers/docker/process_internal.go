package docker

import (
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/ruffel/cexec"
)

// buildExecConfig translates cexec.Command to container.ExecOptions.
func buildExecConfig(cmd *cexec.Command) container.ExecOptions {
	return container.ExecOptions{
		Cmd:          append([]string{cmd.Cmd}, cmd.Args...),
		Env:          cmd.Env,
		WorkingDir:   cmd.Dir,
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  cmd.Stdin != nil,
		Tty:          cmd.Tty,
	}
}

// buildAttachConfig creates the configuration for attaching to a Docker exec instance.
func buildAttachConfig(cmd *cexec.Command) container.ExecStartOptions {
	return container.ExecStartOptions{
		Tty: cmd.Tty,
	}
}

// lookPathCommand resolves file with the container's shell. The name is
// passed as a positional parameter, never spliced into the script.
func lookPathCommand(file string) *cexec.Command {
	return cexec.NewCommand("/bin/sh", "-c", `command -v -- "$1"`, "sh", file)
}

// needsLookup reports whether cmd names a bare executable that the container
// has to find on its PATH.
func needsLookup(cmd *cexec.Command, os cexec.TargetOS) bool {
	if os == cexec.OSWindows {
		return false
	}

	return !strings.ContainsRune(cmd.Cmd, '/')
}
