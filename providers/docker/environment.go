package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/docker/docker/client"
	"github.com/ruffel/cexec"
)

var _ cexec.Environment = (*Environment)(nil)

// Environment implements cexec.Environment for a running container.
type Environment struct {
	config Config
	client *client.Client
	paths  sync.Map // binary name -> resolved path

	mu     sync.Mutex
	active int
	closed bool
}

// New establishes a connection to the Docker daemon.
func New(opts ...Option) (*Environment, error) {
	var c Config

	for _, opt := range opts {
		opt(&c)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	cli, err := client.NewClientWithOpts(c.ClientOpts()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Environment{
		config: c,
		client: cli,
	}, nil
}

// Run executes a command synchronously.
func (e *Environment) Run(ctx context.Context, cmd *cexec.Command) (*cexec.Result, error) {
	proc, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = proc.Close() }()

	waitErr := proc.Wait()

	return proc.Result(), waitErr
}

// Start spawns a command asynchronously. Bare binary names are resolved in
// the container first, so a missing executable fails here rather than as an
// exit code.
func (e *Environment) Start(ctx context.Context, cmd *cexec.Command) (cexec.Process, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if e.isClosed() {
		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), cexec.ErrEnvironmentClosed)
	}

	if needsLookup(cmd, e.TargetOS()) {
		if _, err := e.LookPath(ctx, cmd.Cmd); err != nil {
			return nil, err
		}
	}

	return e.start(ctx, cmd)
}

func (e *Environment) start(ctx context.Context, cmd *cexec.Command) (*Process, error) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()

		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), cexec.ErrEnvironmentClosed)
	}

	e.active++
	e.mu.Unlock()

	process := &Process{
		env:    e,
		client: e.client,
		cmd:    cmd,
		done:   make(chan struct{}),
	}

	if err := process.start(ctx); err != nil {
		e.decrementActive()

		return nil, err
	}

	return process, nil
}

// LookPath resolves file on the container's PATH. Successful lookups are
// cached for the life of the environment.
func (e *Environment) LookPath(ctx context.Context, file string) (string, error) {
	if e.isClosed() {
		return "", fmt.Errorf("cannot look up path: %w", cexec.ErrEnvironmentClosed)
	}

	if cached, ok := e.paths.Load(file); ok {
		path, _ := cached.(string)

		return path, nil
	}

	var stdout bytes.Buffer

	cmd := lookPathCommand(file)
	cmd.Stdout = &stdout

	proc, err := e.start(ctx, cmd)
	if err != nil {
		return "", err
	}

	defer func() { _ = proc.Close() }()

	if err := proc.Wait(); err != nil {
		var exitErr *cexec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%q in container %s: %w", file, e.config.ContainerID, exec.ErrNotFound)
		}

		return "", err
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return "", fmt.Errorf("%q in container %s: %w", file, e.config.ContainerID, exec.ErrNotFound)
	}

	e.paths.Store(file, path)

	return path, nil
}

// TargetOS returns the operating system of the container.
func (e *Environment) TargetOS() cexec.TargetOS {
	if e.config.OS == cexec.OSUnknown {
		return cexec.OSLinux
	}

	return e.config.OS
}

// ActiveProcesses returns the number of exec sessions not yet finished.
func (e *Environment) ActiveProcesses() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.active
}

// Close shuts down the client connection.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	if e.client != nil {
		return e.client.Close()
	}

	return nil
}

func (e *Environment) decrementActive() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

func (e *Environment) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closed
}
