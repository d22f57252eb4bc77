package cexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	errAttemptDeadline = errors.New("attempt deadline exceeded")
	errStopRequested   = errors.New("stop requested by consumer")
)

// RunRequest describes one physical execution of the CLI binary.
type RunRequest struct {
	Binary string
	Args   []string
	Env    []string // Extra "KEY=VALUE" pairs
	Dir    string
	Stdin  io.Reader

	// Timeout bounds this execution only. Zero means no limit.
	Timeout time.Duration

	// Consumer selects streaming mode. Nil means buffered mode.
	Consumer LineConsumer
}

// Command returns the Command an Environment is asked to start for r.
func (r RunRequest) Command() *Command {
	return &Command{
		Cmd:   r.Binary,
		Args:  r.Args,
		Env:   r.Env,
		Dir:   r.Dir,
		Stdin: r.Stdin,
	}
}

// Runner executes a single RunRequest in an Environment and maps whatever
// happens to an Outcome or to one of ErrSpawnFailed, ErrIO, ErrTimeout and
// ErrCancelled. A non-zero exit is not an error at this level.
//
// When the process ran but the execution failed (timeout, cancellation), the
// partial Outcome is returned alongside the error.
type Runner struct {
	env Environment
}

// NewRunner creates a Runner for the given environment.
func NewRunner(env Environment) *Runner {
	return &Runner{env: env}
}

// Run executes req, in buffered mode when req.Consumer is nil and in streaming
// mode otherwise.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*Outcome, error) {
	cmd := req.Command()
	if err := cmd.Validate(); err != nil {
		return nil, newExecError(cmd, ErrSpawnFailed, err)
	}

	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if req.Timeout > 0 {
		var cancelTimeout context.CancelFunc

		attemptCtx, cancelTimeout = context.WithTimeoutCause(attemptCtx, req.Timeout, errAttemptDeadline)
		defer cancelTimeout()
	}

	if req.Consumer == nil {
		return r.runBuffered(ctx, attemptCtx, req, cmd)
	}

	return r.runStreaming(ctx, attemptCtx, cancel, req, cmd)
}

func (r *Runner) runBuffered(ctx, attemptCtx context.Context, req RunRequest, cmd *Command) (*Outcome, error) {
	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	proc, err := r.env.Start(attemptCtx, cmd)
	if err != nil {
		return nil, r.startError(ctx, cmd, err)
	}

	defer func() { _ = proc.Close() }()

	waitErr := proc.Wait()

	outcome := &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCodeOf(proc, waitErr),
		Duration: durationOf(proc, start),
	}

	if err := classify(ctx, attemptCtx, req, cmd, waitErr, nil); err != nil {
		return outcome, err
	}

	return outcome, nil
}

func (r *Runner) runStreaming(
	ctx, attemptCtx context.Context,
	cancel context.CancelCauseFunc,
	req RunRequest,
	cmd *Command,
) (*Outcome, error) {
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	start := time.Now()

	proc, err := r.env.Start(attemptCtx, cmd)
	if err != nil {
		_ = stdoutR.Close()
		_ = stderrR.Close()

		return nil, r.startError(ctx, cmd, err)
	}

	defer func() { _ = proc.Close() }()

	// Process the streams in separate goroutines; only this goroutine talks
	// to the consumer.
	lines := make(chan OutputLine)
	quit := make(chan struct{})
	scanErrs := make(chan error, 2)

	var wg sync.WaitGroup

	wg.Add(2)

	go scanLines(stdoutR, Stdout, lines, quit, scanErrs, &wg)
	go scanLines(stderrR, Stderr, lines, quit, scanErrs, &wg)

	go func() {
		wg.Wait()
		close(lines)
	}()

	waitCh := make(chan error, 1)

	go func() {
		err := proc.Wait()
		// Close the write ends to signal the scanners to stop.
		_ = stdoutW.Close()
		_ = stderrW.Close()
		waitCh <- err
	}()

	var stop *Decision

	for line := range lines {
		if stop != nil {
			continue
		}

		d := req.Consumer.Consume(line)
		if !d.Stopped() {
			continue
		}

		stop = &d

		close(quit)
		cancel(errStopRequested)
		_ = stdoutR.CloseWithError(errStopRequested)
		_ = stderrR.CloseWithError(errStopRequested)
	}

	waitErr := <-waitCh

	outcome := &Outcome{
		ExitCode: exitCodeOf(proc, waitErr),
		Duration: durationOf(proc, start),
	}

	if err := classify(ctx, attemptCtx, req, cmd, waitErr, stop); err != nil {
		return outcome, err
	}

	close(scanErrs)

	for scanErr := range scanErrs {
		if scanErr != nil {
			return outcome, newExecError(cmd, ErrIO, fmt.Errorf("reading output: %w", scanErr))
		}
	}

	return outcome, nil
}

func (r *Runner) startError(ctx context.Context, cmd *Command, err error) error {
	if ctx.Err() != nil {
		return newExecError(cmd, ErrCancelled, context.Cause(ctx))
	}

	return newExecError(cmd, ErrSpawnFailed, err)
}

// classify turns the end state of an attempt into an error, or nil when the
// process ran to completion (whatever its exit code).
func classify(ctx, attemptCtx context.Context, req RunRequest, cmd *Command, waitErr error, stop *Decision) error {
	if stop != nil {
		return newExecError(cmd, ErrCancelled, fmt.Errorf("%w: %s", errStopRequested, stop.Reason()))
	}

	if waitErr == nil {
		return nil
	}

	if ctx.Err() != nil {
		return newExecError(cmd, ErrCancelled, context.Cause(ctx))
	}

	if errors.Is(context.Cause(attemptCtx), errAttemptDeadline) {
		return newExecError(cmd, ErrTimeout, fmt.Errorf("killed after %s", req.Timeout))
	}

	if errors.Is(waitErr, ErrNonZeroExit) {
		return nil
	}

	return newExecError(cmd, ErrIO, waitErr)
}

// MaxLineLength caps a single streamed line. A longer line fails the attempt
// with ErrIO wrapping bufio.ErrTooLong.
const MaxLineLength = 1 << 20

func scanLines(
	r *io.PipeReader,
	kind StreamKind,
	out chan<- OutputLine,
	quit <-chan struct{},
	errs chan<- error,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

	for scanner.Scan() {
		select {
		case out <- OutputLine{Stream: kind, Text: scanner.Text()}:
		case <-quit:
			return
		}
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, io.ErrClosedPipe) {
		return
	}

	errs <- err

	// Keep the process from blocking on a pipe nobody reads.
	_, _ = io.Copy(io.Discard, r)
}

func exitCodeOf(proc Process, waitErr error) int {
	var exitErr *ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode
	}

	if res := proc.Result(); res != nil {
		return res.ExitCode
	}

	return 0
}

func durationOf(proc Process, start time.Time) time.Duration {
	if res := proc.Result(); res != nil && res.Duration > 0 {
		return res.Duration
	}

	return time.Since(start)
}
