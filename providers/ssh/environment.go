package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ruffel/cexec"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

var _ cexec.Environment = (*Environment)(nil)

// Environment implements cexec.Environment for SSH execution.
type Environment struct {
	config Config
	client *ssh.Client
	paths  sync.Map // binary name -> resolved path

	mu     sync.Mutex
	active int
	closed bool
}

// loadPrivateKeyAuth reads and parses a private key file.
func loadPrivateKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", keyPath, err)
	}

	return ssh.PublicKeys(signer), nil
}

// loadAgentAuth connects to the SSH agent and returns an ssh.AuthMethod.
// Returns nil if UseAgent is false or the agent socket is unavailable.
func loadAgentAuth(useAgent bool) ssh.AuthMethod {
	if !useAgent {
		return nil
	}

	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil
	}

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		return nil
	}

	return ssh.PublicKeys(signers...)
}

// New connects to the host described by the options.
func New(opts ...Option) (*Environment, error) {
	var c Config

	for _, opt := range opts {
		opt(&c)
	}

	c = c.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	clientConfig, err := c.clientConfig()
	if err != nil {
		return nil, err
	}

	client, err := ssh.Dial("tcp", c.Address(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh at %s: %w", c.Target(), err)
	}

	return NewFromClient(client, c), nil
}

// NewFromClient creates a new SSH environment from an existing client.
func NewFromClient(client *ssh.Client, config Config) *Environment {
	return &Environment{
		config: config.withDefaults(),
		client: client,
	}
}

// Run executes a command synchronously on the remote server.
func (e *Environment) Run(ctx context.Context, cmd *cexec.Command) (*cexec.Result, error) {
	proc, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = proc.Close() }()

	waitErr := proc.Wait()

	return proc.Result(), waitErr
}

// Start opens a NEW SSH session for the command. Bare binary names are looked
// up on the remote PATH first, so a missing executable fails here rather than
// as exit status 127.
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

	session, err := e.client.NewSession()
	if err != nil {
		e.decrementActive()

		return nil, fmt.Errorf("failed to create ssh session: %w", err)
	}

	process := &Process{
		env:     e,
		session: session,
		cmd:     cmd,
		done:    make(chan struct{}),
	}

	if err := process.start(ctx); err != nil {
		_ = session.Close()

		e.decrementActive()

		return nil, err
	}

	return process, nil
}

// LookPath resolves file on the remote PATH. Successful lookups are cached
// for the life of the connection.
func (e *Environment) LookPath(ctx context.Context, file string) (string, error) {
	if e.isClosed() {
		return "", fmt.Errorf("cannot look up path: %w", cexec.ErrEnvironmentClosed)
	}

	if cached, ok := e.paths.Load(file); ok {
		path, _ := cached.(string)

		return path, nil
	}

	var stdout bytes.Buffer

	cmd := lookPathCommand(file, e.TargetOS())
	cmd.Stdout = &stdout

	proc, err := e.start(ctx, cmd)
	if err != nil {
		return "", err
	}

	defer func() { _ = proc.Close() }()

	if err := proc.Wait(); err != nil {
		var exitErr *cexec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%q on %s: %w", file, e.config.Host, exec.ErrNotFound)
		}

		return "", err
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return "", fmt.Errorf("%q on %s: %w", file, e.config.Host, exec.ErrNotFound)
	}

	e.paths.Store(file, path)

	return path, nil
}

// TargetOS returns the operating system as configured.
func (e *Environment) TargetOS() cexec.TargetOS {
	return e.config.OS
}

// Close closes the underlying SSH connection.
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

// ActiveProcesses returns the number of sessions not yet finished.
func (e *Environment) ActiveProcesses() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.active
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
