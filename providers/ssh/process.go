package ssh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ruffel/cexec"
	"golang.org/x/crypto/ssh"
)

// Process implements cexec.Process for SSH execution.
type Process struct {
	env     *Environment
	session *ssh.Session
	cmd     *cexec.Command

	result *cexec.Result
	mu     sync.RWMutex
	done   chan struct{}
	closed bool
}

// Wait blocks until the command completes.
func (p *Process) Wait() error {
	<-p.done

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.result.Error != nil {
		exitErr := &ssh.ExitError{}
		if errors.As(p.result.Error, &exitErr) {
			return &cexec.ExitError{
				Command:  p.cmd,
				ExitCode: exitErr.ExitStatus(),
				Cause:    p.result.Error,
			}
		}

		return p.result.Error
	}

	return nil
}

// Result returns the command execution result.
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

// Signal sends a signal to the remote process.
func (p *Process) Signal(sig os.Signal) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.session == nil {
		return fmt.Errorf("cannot signal %q: process closed or not started", p.cmd.String())
	}

	// Map OS signals to SSH signals
	var sshSig ssh.Signal

	switch sig {
	case os.Interrupt:
		sshSig = ssh.SIGINT
	case os.Kill:
		sshSig = ssh.SIGKILL
	default:
		return fmt.Errorf("signal %v not supported over ssh", sig)
	}

	return p.session.Signal(sshSig)
}

// Close terminates the SSH session and waits for the bookkeeping to end.
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
	if p.session == nil {
		return
	}

	// Not every sshd honours signal requests; closing the channel hangs up
	// the remote command either way.
	_ = p.session.Signal(ssh.SIGKILL)
	_ = p.session.Close()
}

func (p *Process) start(ctx context.Context) error {
	if p.cmd.Stdout != nil {
		p.session.Stdout = p.cmd.Stdout
	}

	if p.cmd.Stderr != nil {
		p.session.Stderr = p.cmd.Stderr
	}

	if p.cmd.Stdin != nil {
		p.session.Stdin = p.cmd.Stdin
	}

	isWindows := p.env.TargetOS() == cexec.OSWindows

	if p.cmd.Tty {
		modes := buildTerminalModes()

		err := p.session.RequestPty("xterm", 80, 40, modes)
		if err != nil {
			return fmt.Errorf("request for pty failed: %w", err)
		}
	}

	startTime := time.Now()

	// Prepend env and dir to the command
	// Format: [vars] [cd] [cmd]
	// Example: export VAR='1'; cd '/tmp' && echo hello
	fullCommand := buildFullCommand(p.cmd, isWindows)

	if err := p.session.Start(fullCommand); err != nil {
		return fmt.Errorf("failed to start %q: %w", p.cmd.String(), err)
	}

	go p.wait(ctx, startTime)

	return nil
}

func (p *Process) wait(ctx context.Context, startTime time.Time) {
	defer close(p.done)
	defer p.env.decrementActive()

	stop := context.AfterFunc(ctx, p.hangup)
	defer stop()

	err := p.session.Wait()
	duration := time.Since(startTime)

	var exitCode int

	switch exitErr := (&ssh.ExitError{}); {
	case err == nil:
	case ctx.Err() != nil:
		exitCode = -1
		err = context.Cause(ctx)
	case errors.As(err, &exitErr):
		exitCode = exitErr.ExitStatus()
	default:
		exitCode = 255 // Unknown/connection error
	}

	p.mu.Lock()
	p.result = &cexec.Result{
		ExitCode: exitCode,
		Duration: duration,
		Error:    err,
	}
	p.mu.Unlock()
}
