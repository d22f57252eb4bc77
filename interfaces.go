// Package cexec is a command execution and observability layer for
// container-management CLIs such as docker and podman.
//
// Callers hand the Executor a logical command name plus an argument vector.
// The Executor records every invocation in an ExecutionLog, then either
// previews it (dry-run) or runs it through a Runner, retrying failures under a
// RetryPolicy.
//
// # Core Interfaces
//
// - Environment: where the CLI binary runs (local host, SSH target, a tools container).
// - Process: a running command handle (allows Wait, Signal, Close).
//
// # Streaming
//
// ExecuteStreaming hands each complete stdout/stderr line to a LineConsumer as
// soon as it is read. A consumer returning Stop terminates the child's whole
// process group and the call fails with ErrCancelled.
package cexec

import (
	"context"
	"io"
	"os"
)

// Environment abstracts the system where commands are executed (e.g., Local, SSH, Docker).
type Environment interface {
	io.Closer

	// Run executes a command synchronously.
	// Output is not captured by default; use Command.Stdout/Stderr.
	Run(ctx context.Context, cmd *Command) (*Result, error)

	// Start initiates a command asynchronously.
	// The caller must release the returned Process via Wait() or Close().
	Start(ctx context.Context, cmd *Command) (Process, error)

	// TargetOS returns the operating system of the target environment.
	TargetOS() TargetOS

	// LookPath searches for an executable named file in the directories named by
	// the PATH environment variable.
	LookPath(ctx context.Context, file string) (string, error)
}

// Process represents a command that has been started but not yet completed.
type Process interface {
	io.Closer

	// Wait blocks until the process exits.
	// Returns an *ExitError if the exit code is non-zero.
	Wait() error

	// Result returns metadata (exit code, duration). Only valid after Wait.
	Result() *Result

	// Signal sends an OS signal to the process.
	// Support for specific signals depends on the underlying provider.
	Signal(sig os.Signal) error
}
