package cexec

import (
	"errors"
	"fmt"
)

// ErrNotSupported indicates that the requested feature (e.g., TTY) is not supported
// by the specific provider or OS.
var ErrNotSupported = errors.New("operation not supported")

// ErrEnvironmentClosed indicates that an operation was attempted on a closed environment.
var ErrEnvironmentClosed = errors.New("environment is closed")

// Execution failure kinds. Use errors.Is to classify an error returned by a
// Runner or Executor.
var (
	// ErrSpawnFailed means the binary could not be started (missing, not executable, denied).
	ErrSpawnFailed = errors.New("spawn failed")
	// ErrIO means reading or writing the process pipes failed mid-execution.
	ErrIO = errors.New("process i/o failed")
	// ErrTimeout means an attempt exceeded its allotted duration and was killed.
	ErrTimeout = errors.New("attempt timed out")
	// ErrCancelled means the consumer or the caller's context stopped the run early.
	ErrCancelled = errors.New("execution cancelled")
	// ErrNonZeroExit is matched by *ExitError.
	ErrNonZeroExit = errors.New("non-zero exit")
	// ErrRetriesExhausted is matched by *RetriesExhaustedError.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// ExitError represents a completed execution that resulted in a non-zero exit code.
type ExitError struct {
	Command  *Command
	ExitCode int
	Stderr   []byte
	Cause    error
}

func (e *ExitError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("command exited with code %d", e.ExitCode)
	}

	return fmt.Sprintf("command %q exited with code %d", e.Command.String(), e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrNonZeroExit) match any exit error.
func (e *ExitError) Is(target error) bool {
	return target == ErrNonZeroExit
}

// ExecError is an infrastructure-level failure: the command could not be run
// to completion. Kind is one of ErrSpawnFailed, ErrIO, ErrTimeout or ErrCancelled.
type ExecError struct {
	Command *Command
	Kind    error
	Err     error
}

func (e *ExecError) Error() string {
	kind := "execution failed"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}

	if e.Command == nil {
		if e.Err == nil {
			return kind
		}

		return fmt.Sprintf("%s: %v", kind, e.Err)
	}

	if e.Err == nil {
		return fmt.Sprintf("%s executing %q", kind, e.Command.String())
	}

	return fmt.Sprintf("%s executing %q: %v", kind, e.Command.String(), e.Err)
}

func (e *ExecError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

// RetriesExhaustedError is returned by the Executor when every attempt allowed
// by the RetryPolicy failed. Last is the final attempt's error.
type RetriesExhaustedError struct {
	Command  *Command
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
	}

	return fmt.Sprintf("giving up on %q after %d attempts: %v", e.Command.String(), e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrRetriesExhausted}
	}

	return []error{ErrRetriesExhausted, e.Last}
}

// IsNonZeroExit reports whether err means the process ran to completion with
// an unaccepted exit code, as opposed to not running to completion at all.
// Only a bare *ExitError or the Last of a *RetriesExhaustedError counts. An
// ExitError deeper in the chain, e.g. a cancelled context's cause, does not.
func IsNonZeroExit(err error) bool {
	if re, ok := err.(*RetriesExhaustedError); ok { //nolint:errorlint // only the top-level error counts
		err = re.Last
	}

	_, ok := err.(*ExitError) //nolint:errorlint // see above

	return ok
}

func newExecError(cmd *Command, kind, err error) *ExecError {
	return &ExecError{Command: cmd, Kind: kind, Err: err}
}
