package ssh

import (
	"fmt"
	"strings"

	"github.com/ruffel/cexec"
	"golang.org/x/crypto/ssh"
)

// buildEnvPrefix constructs the environment variable prefix for SSH commands.
// Since OpenSSH defaults PermitUserEnvironment=no, session.Setenv() won't work.
// We work around by prepending "export VAR='val';" to the command string.
func buildEnvPrefix(envVars []string, isWindows bool) string {
	var envPrefix strings.Builder

	for _, env := range envVars {
		// KEY=VALUE -> KEY='VALUE' (with single quotes inside VALUE escaped)
		k, v, found := strings.Cut(env, "=")
		if !found {
			continue // Skip malformed env
		}

		if isWindows {
			// PowerShell: $env:KEY='VALUE';
			fmt.Fprintf(&envPrefix, "$env:%s=%s; ", k, quotePowerShell(v))
		} else {
			// POSIX: export KEY='VALUE';
			fmt.Fprintf(&envPrefix, "export %s='%s'; ", k, strings.ReplaceAll(v, "'", "'\\''"))
		}
	}

	return envPrefix.String()
}

// buildDirPrefix constructs the directory change prefix for SSH commands.
func buildDirPrefix(dir string, isWindows bool) string {
	if dir == "" {
		return ""
	}

	if isWindows {
		// Windows: cd 'path';
		return fmt.Sprintf("cd %s; ", quotePowerShell(dir))
	}
	// POSIX: cd 'path' &&
	return fmt.Sprintf("cd '%s' && ", strings.ReplaceAll(dir, "'", "'\\''"))
}

// buildTerminalModes returns the default terminal modes for a PTY.
func buildTerminalModes() ssh.TerminalModes {
	return ssh.TerminalModes{
		ssh.ECHO:          1,     // enable echoing
		ssh.TTY_OP_ISPEED: 14400, // input speed = 14.4kbaud
		ssh.TTY_OP_OSPEED: 14400, // output speed = 14.4kbaud
	}
}

// buildFullCommand constructs the complete command string to run on the remote server.
// It combines environment variables, working directory change, and the command itself.
func buildFullCommand(cmd *cexec.Command, isWindows bool) string {
	line := cmd.String()

	if isWindows {
		words := make([]string, 0, len(cmd.Args)+1)
		for _, w := range append([]string{cmd.Cmd}, cmd.Args...) {
			words = append(words, quotePowerShell(w))
		}

		line = "& " + strings.Join(words, " ")
	}

	return buildEnvPrefix(cmd.Env, isWindows) + buildDirPrefix(cmd.Dir, isWindows) + line
}

// quotePowerShell wraps s in a verbatim string literal.
func quotePowerShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// lookPathCommand resolves file with the remote shell. On POSIX hosts the
// name travels as a quoted positional parameter.
func lookPathCommand(file string, os cexec.TargetOS) *cexec.Command {
	if os == cexec.OSWindows {
		escaped := strings.ReplaceAll(file, "'", "''")

		return os.ShellCommand(fmt.Sprintf("(Get-Command -CommandType Application -ErrorAction Stop '%s').Source", escaped))
	}

	return cexec.NewCommand("/bin/sh", "-c", `command -v -- "$1"`, "sh", file)
}

// needsLookup reports whether cmd names a bare executable that the remote
// shell has to find on its PATH.
func needsLookup(cmd *cexec.Command, os cexec.TargetOS) bool {
	if strings.ContainsAny(cmd.Cmd, `/\`) {
		return false
	}

	// The Windows lookup itself runs through powershell.
	return os != cexec.OSWindows || cmd.Cmd != "powershell"
}
