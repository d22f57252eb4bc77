package mock

import (
	"context"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/ruffel/cexec"
	"github.com/stretchr/testify/mock"
)

// Environment implements a mock cexec.Environment using testify/mock.
type Environment struct {
	mock.Mock

	// OS is returned by TargetOS. New sets it to cexec.OSLinux.
	OS cexec.TargetOS
}

var _ cexec.Environment = (*Environment)(nil)

// New creates a new mock environment.
func New() *Environment {
	return &Environment{OS: cexec.OSLinux}
}

// Run mocks running a command to completion.
func (m *Environment) Run(ctx context.Context, cmd *cexec.Command) (*cexec.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*cexec.Result), args.Error(1)
}

// Start mocks starting a command asynchronously.
func (m *Environment) Start(ctx context.Context, cmd *cexec.Command) (cexec.Process, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(cexec.Process), args.Error(1)
}

// TargetOS returns m.OS.
func (m *Environment) TargetOS() cexec.TargetOS {
	return m.OS
}

// LookPath mocks resolving an executable.
func (m *Environment) LookPath(_ context.Context, file string) (string, error) {
	args := m.Called(file)

	return args.String(0), args.Error(1)
}

// Close mocks closing the environment.
func (m *Environment) Close() error {
	args := m.Called()

	return args.Error(0)
}

// OnLookPath is shorthand for On("LookPath", file).
func (m *Environment) OnLookPath(file string) *mock.Call {
	return m.On("LookPath", file)
}

// ExpectCommand makes every Start of binary with exactly args return a
// ScriptedProcess following script. The returned process records how often it
// was started.
func (m *Environment) ExpectCommand(binary string, args []string, script Script) *ScriptedProcess {
	proc := &ScriptedProcess{script: script}

	matcher := mock.MatchedBy(func(c *cexec.Command) bool {
		return c != nil && c.Cmd == binary && slices.Equal(c.Args, args)
	})

	m.On("Start", mock.Anything, matcher).
		Run(func(a mock.Arguments) {
			proc.bind(a.Get(0).(context.Context), a.Get(1).(*cexec.Command))
		}).
		Return(proc, nil)

	return proc
}

// Process implements a mock cexec.Process using testify/mock.
type Process struct {
	mock.Mock
}

var _ cexec.Process = (*Process)(nil)

// Wait mocks waiting for the process to complete.
func (m *Process) Wait() error {
	args := m.Called()

	return args.Error(0)
}

// Result mocks returning the process result.
func (m *Process) Result() *cexec.Result {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(*cexec.Result)
}

// Signal mocks sending a signal to the process.
func (m *Process) Signal(sig os.Signal) error {
	args := m.Called(sig)

	return args.Error(0)
}

// Close mocks closing the process.
func (m *Process) Close() error {
	args := m.Called()

	return args.Error(0)
}

// WriteOutput is a helper to simulate output writing for mocked processes.
// Usage: mockProcess.On("Wait").Run(WriteOutput(cmd.Stdout, "output")).Return(nil).
func WriteOutput(w io.Writer, content string) func(mock.Arguments) {
	return func(mock.Arguments) {
		if w != nil {
			_, _ = io.WriteString(w, content)
		}
	}
}

// Script describes what a ScriptedProcess does once waited on.
type Script struct {
	ExitCode int
	Stdout   []string // Chunks written to Command.Stdout, in order
	Stderr   []string // Chunks written to Command.Stderr after Stdout
	Delay    time.Duration
	Err      error // Returned by Wait instead of an exit status
}

// Exit returns a script that exits with code and prints nothing.
func Exit(code int) Script {
	return Script{ExitCode: code}
}

// WithStdout appends stdout chunks.
func (s Script) WithStdout(chunks ...string) Script {
	s.Stdout = append(slices.Clone(s.Stdout), chunks...)
	return s
}

// WithStderr appends stderr chunks.
func (s Script) WithStderr(chunks ...string) Script {
	s.Stderr = append(slices.Clone(s.Stderr), chunks...)
	return s
}

// WithDelay makes Wait block for d, or until the start context ends.
func (s Script) WithDelay(d time.Duration) Script {
	s.Delay = d
	return s
}

// WithError makes Wait fail with err.
func (s Script) WithError(err error) Script {
	s.Err = err
	return s
}

// ScriptedProcess is a cexec.Process that replays a Script against the
// Command it was started with. Starts are expected to be sequential.
type ScriptedProcess struct {
	script Script

	mu     sync.Mutex
	ctx    context.Context
	cmd    *cexec.Command
	starts int
	result *cexec.Result
}

var _ cexec.Process = (*ScriptedProcess)(nil)

func (p *ScriptedProcess) bind(ctx context.Context, cmd *cexec.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ctx = ctx
	p.cmd = cmd
	p.starts++
	p.result = nil
}

// Starts returns how many times the process was started.
func (p *ScriptedProcess) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.starts
}

// Wait writes the scripted output and reports the scripted exit.
func (p *ScriptedProcess) Wait() error {
	p.mu.Lock()
	ctx, cmd := p.ctx, p.cmd
	p.mu.Unlock()

	start := time.Now()

	write := func(w io.Writer, chunks []string) {
		if w == nil {
			return
		}

		for _, c := range chunks {
			_, _ = io.WriteString(w, c)
		}
	}

	write(cmd.Stdout, p.script.Stdout)
	write(cmd.Stderr, p.script.Stderr)

	var err error

	if p.script.Delay > 0 {
		select {
		case <-time.After(p.script.Delay):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	res := &cexec.Result{ExitCode: p.script.ExitCode, Duration: time.Since(start)}

	switch {
	case err != nil:
		res.ExitCode = -1
	case p.script.Err != nil:
		err = p.script.Err
	case p.script.ExitCode != 0:
		err = &cexec.ExitError{Command: cmd, ExitCode: p.script.ExitCode}
	}

	res.Error = err

	p.mu.Lock()
	p.result = res
	p.mu.Unlock()

	return err
}

// Result returns the outcome of the last Wait.
func (p *ScriptedProcess) Result() *cexec.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.result == nil {
		return &cexec.Result{}
	}

	r := *p.result

	return &r
}

// Signal is a no-op.
func (p *ScriptedProcess) Signal(os.Signal) error {
	return nil
}

// Close is a no-op.
func (p *ScriptedProcess) Close() error {
	return nil
}
