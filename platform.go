package cexec

import (
	"runtime"
	"strings"
)

// TargetOS identifies the operating system of the target environment.
type TargetOS int

const (
	// OSUnknown represents an unidentified operating system.
	OSUnknown TargetOS = iota
	// OSLinux represents the Linux kernel.
	OSLinux
	// OSWindows represents Microsoft Windows.
	OSWindows
	// OSDarwin represents macOS (Darwin).
	OSDarwin
)

func (os TargetOS) String() string {
	switch os {
	case OSLinux:
		return "linux"
	case OSWindows:
		return "windows"
	case OSDarwin:
		return "darwin"
	case OSUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// ShellCommand constructs a command that runs the provided script inside the system shell.
// Returns "sh -c <script>" for UNIX-likes and "powershell ..." for Windows.
func (os TargetOS) ShellCommand(script string) *Command {
	if os == OSWindows {
		return &Command{
			Cmd:  "powershell",
			Args: []string{"-NoProfile", "-NonInteractive", "-Command", script},
		}
	}

	return &Command{
		Cmd:  "sh",
		Args: []string{"-c", script},
	}
}

// ExecutableName returns the file name the CLI binary has on this OS.
// Names that already carry an extension or a path are returned untouched.
func (os TargetOS) ExecutableName(name string) string {
	if os != OSWindows || name == "" {
		return name
	}

	if strings.ContainsAny(name, `/\`) || strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name
	}

	return name + ".exe"
}

// ParseTargetOS converts a typical OS string (e.g., "linux", "darwin") to a TargetOS.
func ParseTargetOS(osStr string) TargetOS {
	switch strings.ToLower(strings.TrimSpace(osStr)) {
	case "linux":
		return OSLinux
	case "windows", "windows_nt":
		return OSWindows
	case "darwin", "macos":
		return OSDarwin
	default:
		return OSUnknown
	}
}

// DetectLocalOS returns the TargetOS of the current running process.
func DetectLocalOS() TargetOS {
	return ParseTargetOS(runtime.GOOS)
}
