package cexec

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Command configures a single process execution inside an Environment.
type Command struct {
	Cmd  string   // Binary name or path to executable
	Args []string // Arguments to pass to the binary
	Env  []string // Environment variables in "KEY=VALUE" format
	Dir  string   // Working directory for execution

	// Standard streams. If nil, output is discarded and stdin is empty.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Tty allocates a PTY. Providers that cannot do so return ErrNotSupported.
	Tty bool
}

// Validate checks that the command is well-formed.
func (c *Command) Validate() error {
	if c == nil {
		return errors.New("command cannot be nil")
	}

	if strings.TrimSpace(c.Cmd) == "" {
		return errors.New("command binary cannot be empty")
	}

	return nil
}

// NewCommand creates a new Command with the given binary and arguments.
func NewCommand(binary string, args ...string) *Command {
	return &Command{
		Cmd:  binary,
		Args: args,
	}
}

// String renders the command as a shell-quoted line.
func (c *Command) String() string {
	if c == nil {
		return ""
	}

	return FormatCommandLine(c.Cmd, c.Args)
}

// ErrEmptyArgs is returned by ParseArgs for a line with no tokens.
var ErrEmptyArgs = errors.New("no arguments")

// ParseArgs splits an argument line for the container CLI the way a POSIX
// shell would, e.g. `run --name "my app" nginx`. The binary itself is not
// part of the line.
func ParseArgs(line string) ([]string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	if len(args) == 0 {
		return nil, ErrEmptyArgs
	}

	return args, nil
}

// Result contains process-level metadata about a completed execution.
type Result struct {
	ExitCode int           // Process exit code (0 indicates success)
	Duration time.Duration // Time taken for execution
	Error    error         // Launch/Transport error (distinct from non-zero exit code)
}

// Success returns true if the command completed with exit code 0 and no transport error.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Failed returns true if the command failed (non-zero exit code or transport error).
func (r *Result) Failed() bool {
	return !r.Success()
}

// Outcome is what a caller gets back for one physical execution of the CLI.
//
// In streaming mode Stdout and Stderr are always empty: the lines handed to
// the consumer are the authoritative record.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Success reports whether the process exited with code 0.
func (o *Outcome) Success() bool {
	return o != nil && o.ExitCode == 0
}
