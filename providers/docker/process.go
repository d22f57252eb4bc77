package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/ruffel/cexec"
)

var errSessionClosed = errors.New("exec session closed before exit")

// Process implements cexec.Process for Docker execution.
// It manages the lifecycle of a `docker exec` session.
type Process struct {
	env    *Environment
	client *client.Client
	cmd    *cexec.Command

	execID string
	stream types.HijackedResponse

	result    *cexec.Result
	mu        sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
	hungUp    atomic.Bool
	closed    bool
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}

// copyOutput copies the process output streams to the configured writers.
// In TTY mode, stdout/stderr are merged. In non-TTY mode, they are multiplexed.
func copyOutput(stream io.Reader, stdout, stderr io.Writer, tty bool) error {
	var err error

	if tty {
		_, err = io.Copy(writerOrDiscard(stdout), stream)
	} else {
		_, err = stdcopy.StdCopy(writerOrDiscard(stdout), writerOrDiscard(stderr), stream)
	}

	return err
}

// pollForExitCode polls the Docker API until the exec process exits or times out.
func pollForExitCode(ctx context.Context, cli *client.Client, execID string, timeout time.Duration) (container.ExecInspect, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		inspectResp, err := cli.ContainerExecInspect(pollCtx, execID)
		if err != nil {
			return inspectResp, err
		}

		if !inspectResp.Running {
			return inspectResp, nil
		}

		select {
		case <-pollCtx.Done():
			return inspectResp, pollCtx.Err()
		case <-ticker.C:
		}
	}
}

// Wait blocks until the command completes and its output has been copied.
func (p *Process) Wait() error {
	<-p.done

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.result.Error != nil {
		return p.result.Error
	}

	if p.result.ExitCode != 0 {
		return &cexec.ExitError{
			Command:  p.cmd,
			ExitCode: p.result.ExitCode,
		}
	}

	return nil
}

// Result returns the command result (only valid after Wait completes).
func (p *Process) Result() *cexec.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.result == nil {
		return &cexec.Result{}
	}

	return &cexec.Result{
		ExitCode: p.result.ExitCode,
		Duration: p.result.Duration,
		Error:    p.result.Error,
	}
}

// Signal hangs up the session. The exec API has no way to deliver a POSIX
// signal, so every signal closes the hijacked connection.
func (p *Process) Signal(_ os.Signal) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return fmt.Errorf("cannot signal %q: process closed", p.cmd.String())
	}

	p.hangup()

	return nil
}

// Close disconnects the stream and waits for the session bookkeeping to end.
func (p *Process) Close() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return nil
	}

	p.closed = true
	p.mu.Unlock()

	p.hangup()
	<-p.done

	return nil
}

func (p *Process) hangup() {
	p.closeOnce.Do(func() {
		p.hungUp.Store(true)

		if p.stream.Conn != nil {
			p.stream.Close()
		}
	})
}

func (p *Process) start(ctx context.Context) error {
	idResp, err := p.client.ContainerExecCreate(ctx, p.env.config.ContainerID, buildExecConfig(p.cmd))
	if err != nil {
		return fmt.Errorf("failed to create exec: %w", err)
	}

	p.execID = idResp.ID

	resp, err := p.client.ContainerExecAttach(ctx, p.execID, buildAttachConfig(p.cmd))
	if err != nil {
		return fmt.Errorf("failed to attach exec: %w", err)
	}

	p.stream = resp

	startTime := time.Now()

	if p.cmd.Stdin != nil {
		go func() {
			defer func() { _ = p.stream.CloseWrite() }()

			_, _ = io.Copy(p.stream.Conn, p.cmd.Stdin)
		}()
	}

	outputDone := make(chan error, 1)

	go func() {
		outputDone <- copyOutput(p.stream.Reader, p.cmd.Stdout, p.cmd.Stderr, p.cmd.Tty)
	}()

	go p.wait(ctx, startTime, outputDone)

	return nil
}

// wait owns the session after start: it tracks cancellation, drains output
// and records the result.
func (p *Process) wait(ctx context.Context, startTime time.Time, outputDone <-chan error) {
	defer close(p.done)
	defer p.env.decrementActive()
	defer p.hangup()

	var copyErr error

	select {
	case copyErr = <-outputDone:
	case <-ctx.Done():
		p.hangup()
		copyErr = <-outputDone
	}

	// A hung-up session may still be running in the container; its exit code
	// is not worth waiting for.
	if ctx.Err() != nil || p.hungUp.Load() {
		cause := context.Cause(ctx)
		if cause == nil {
			cause = errSessionClosed
		}

		p.setResult(&cexec.Result{
			ExitCode: -1,
			Duration: time.Since(startTime),
			Error:    cause,
		})

		return
	}

	// ctx is done with once output drains; the exit code is fetched regardless.
	inspectResp, err := pollForExitCode( //nolint:contextcheck
		context.Background(), p.client, p.execID, p.env.config.exitPollTimeout())

	result := &cexec.Result{
		ExitCode: inspectResp.ExitCode,
		Duration: time.Since(startTime),
		Error:    err,
	}

	if result.Error == nil && copyErr != nil && !errors.Is(copyErr, io.EOF) {
		result.Error = fmt.Errorf("copying output: %w", copyErr)
	}

	p.setResult(result)
}

func (p *Process) setResult(r *cexec.Result) {
	p.mu.Lock()
	p.result = r
	p.mu.Unlock()
}
