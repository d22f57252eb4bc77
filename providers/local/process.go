package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ruffel/cexec"
)

// Process implements cexec.Process for local command execution.
// It wraps `*exec.Cmd` to provide a uniform interface for waiting, signaling, and result retrieval.
type Process struct {
	env     *Environment
	cmd     *cexec.Command
	execCmd *exec.Cmd

	result *cexec.Result
	mu     sync.RWMutex
	done   chan struct{}
	closed bool
}

// Close releases resources associated with the process.
// If the process is still running, its whole process group is killed.
func (p *Process) Close() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return nil
	}

	shouldKill := p.execCmd != nil && p.execCmd.Process != nil && p.done != nil
	done := p.done
	p.closed = true
	p.mu.Unlock()

	// Kill and wait outside of lock to avoid deadlock
	if shouldKill {
		select {
		case <-done:
		default:
			if p.execCmd.Process.Pid > 0 {
				_ = killProcessGroup(p.execCmd.Process.Pid)
			}

			<-done
		}
	}

	return nil
}

func (p *Process) start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("cannot start process %q: already closed", p.cmd.String())
	}

	execCmd := exec.CommandContext(ctx, p.cmd.Cmd, p.cmd.Args...)
	p.execCmd = execCmd

	if p.cmd.Dir != "" {
		execCmd.Dir = p.cmd.Dir
	}

	if len(p.cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), p.cmd.Env...)
	}

	// A cancelled or expired context takes the whole group down, not just
	// the direct child.
	execCmd.Cancel = func() error {
		return killProcessGroup(execCmd.Process.Pid)
	}
	execCmd.WaitDelay = p.env.cfg.waitDelay

	p.done = make(chan struct{})
	startTime := time.Now()

	var copyDone <-chan struct{}

	if p.cmd.Tty {
		var err error

		copyDone, err = p.startTTY()
		if err != nil {
			return err
		}
	} else {
		setProcessGroup(execCmd)

		// Nil streams make os/exec use the null device.
		execCmd.Stdout = p.cmd.Stdout
		execCmd.Stderr = p.cmd.Stderr
		execCmd.Stdin = p.cmd.Stdin

		if err := execCmd.Start(); err != nil {
			return err
		}
	}

	go func() {
		defer close(p.done)
		defer p.env.decrementActive()

		err := execCmd.Wait()
		if copyDone != nil {
			<-copyDone
		}

		exitCode := 0
		if execCmd.ProcessState != nil {
			exitCode = execCmd.ProcessState.ExitCode()
		}

		p.mu.Lock()
		p.result = &cexec.Result{
			ExitCode: exitCode,
			Duration: time.Since(startTime),
			Error:    err,
		}
		p.mu.Unlock()
	}()

	return nil
}

// startTTY starts the command attached to a new pseudo-terminal and copies
// its output to Command.Stdout. The returned channel closes when the copy ends.
func (p *Process) startTTY() (<-chan struct{}, error) {
	tty, err := startPTY(p.execCmd)
	if err != nil {
		return nil, fmt.Errorf("cannot start %q with a tty: %w", p.cmd.String(), err)
	}

	if p.cmd.Stdin != nil {
		go func() { _, _ = io.Copy(tty, p.cmd.Stdin) }()
	}

	out := p.cmd.Stdout
	if out == nil {
		out = io.Discard
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() { _ = tty.Close() }()

		// Reading the master fails with EIO once the child side is gone.
		_, _ = io.Copy(out, tty)
	}()

	return done, nil
}

// Wait blocks until the command completes.
// It returns a *cexec.ExitError if the command finished with a non-zero exit code,
// or a different error if the wait itself failed (e.g. context cancellation).
func (p *Process) Wait() error {
	p.mu.RLock()

	if p.closed {
		p.mu.RUnlock()

		return fmt.Errorf("cannot wait on process %q: already closed", p.cmd.String())
	}

	if p.done == nil {
		p.mu.RUnlock()

		return fmt.Errorf("cannot wait on process %q: not started", p.cmd.String())
	}

	done := p.done
	p.mu.RUnlock()

	<-done

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.result.Error != nil {
		exitErr := &exec.ExitError{}
		if errors.As(p.result.Error, &exitErr) && exitErr.ExitCode() > 0 {
			return &cexec.ExitError{
				Command:  p.cmd,
				ExitCode: exitErr.ExitCode(),
				Cause:    p.result.Error,
			}
		}

		// Killed by a signal, context cancellation, wait-delay overrun, ...
		return p.result.Error
	}

	return nil
}

// Result returns the final metadata of the command execution.
// It returns an empty result if the process is still running or hasn't started.
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

// Signal sends an OS signal to the running process.
func (p *Process) Signal(sig os.Signal) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("cannot signal process %q: already closed", p.cmd.String())
	}

	if p.execCmd == nil || p.execCmd.Process == nil {
		return fmt.Errorf("cannot signal process %q: not started", p.cmd.String())
	}

	return p.execCmd.Process.Signal(sig)
}
