package cexec

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Executor is the single entry point command builders call through. It
// records each call in its ExecutionLog, then previews it (dry-run) or runs it
// with retries.
//
// An Executor is safe for concurrent use; concurrent calls share the log.
type Executor struct {
	env    Environment
	runner *Runner

	dryRun  bool
	verbose bool
	policy  *RetryPolicy
	timeout time.Duration
	accept  map[int]struct{}
	vars    []string
	dir     string

	binary string
	engine EngineType

	logger *log.Logger
	log    *ExecutionLog
	clock  Clock

	mu       sync.Mutex
	resolved string
}

// NewExecutor creates a new Executor that runs the CLI inside env.
func NewExecutor(env Environment, opts ...Option) *Executor {
	e := &Executor{
		env:    env,
		runner: NewRunner(env),
		engine: EngineDocker,
		log:    NewExecutionLog(),
		clock:  realClock{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = log.New(io.Discard)
		if e.verbose {
			e.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cexec"})
		}
	}

	return e
}

// Log returns the executor's audit trail.
func (e *Executor) Log() *ExecutionLog {
	return e.log
}

// Logger returns the logger verbose output goes to.
func (e *Executor) Logger() *log.Logger {
	return e.logger
}

// DryRun reports whether the executor only records invocations.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Binary returns the name under which invocations are logged: the pinned
// binary if set, otherwise the engine's executable name.
func (e *Executor) Binary() string {
	if e.binary != "" {
		return e.binary
	}

	return e.env.TargetOS().ExecutableName(string(e.engine))
}

// LookPath resolves an executable path using the underlying environment's LookPath strategy.
func (e *Executor) LookPath(ctx context.Context, file string) (string, error) {
	return e.env.LookPath(ctx, file)
}

// Execute runs args through the CLI in buffered mode.
//
// Without a retry policy, a non-zero exit returns (outcome, nil) and runner
// errors are returned as they are. With a policy, a call whose every attempt
// failed returns the last outcome and a *RetriesExhaustedError wrapping the
// last attempt's error (an *ExitError for non-zero exits).
func (e *Executor) Execute(ctx context.Context, name string, args []string) (*Outcome, error) {
	return e.execute(ctx, name, args, nil)
}

// ExecuteStreaming is Execute in streaming mode: every output line is handed
// to consumer as it is read, and the returned outcome has empty Stdout and
// Stderr. If consumer has a Done method (like *ChannelConsumer) it is called
// once the call, including all retries, is over.
func (e *Executor) ExecuteStreaming(
	ctx context.Context,
	name string,
	args []string,
	consumer LineConsumer,
) (*Outcome, error) {
	if consumer == nil {
		consumer = LineConsumerFunc(func(OutputLine) Decision { return Continue() })
	}

	if d, ok := consumer.(interface{ Done() }); ok {
		defer d.Done()
	}

	return e.execute(ctx, name, args, consumer)
}

func (e *Executor) execute(ctx context.Context, name string, args []string, consumer LineConsumer) (*Outcome, error) {
	args = slices.Clone(args)
	binary := e.Binary()

	e.log.Append(Invocation{
		Name:      name,
		Binary:    binary,
		Args:      args,
		Simulated: e.dryRun,
		Timestamp: e.clock.Now(),
	})

	if e.dryRun {
		if e.verbose {
			e.logger.Info("dry-run", "name", name, "cmd", FormatCommandLine(binary, args))
		}

		return &Outcome{}, nil
	}

	var (
		outcome *Outcome
		lastErr error
		attempt int
	)

	for attempt = 1; ; attempt++ {
		outcome, lastErr = e.attempt(ctx, name, args, consumer, attempt)
		if lastErr == nil {
			return outcome, nil
		}

		if errors.Is(lastErr, ErrCancelled) || e.policy == nil {
			break
		}

		wait, retry := e.policy.ShouldRetry(attempt, lastErr)
		if !retry {
			return outcome, &RetriesExhaustedError{
				Command:  NewCommand(binary, args...),
				Attempts: attempt,
				Last:     lastErr,
			}
		}

		if e.verbose {
			e.logger.Info("retrying", "name", name, "attempt", attempt, "wait", wait, "err", lastErr)
		}

		if err := e.sleep(ctx, wait); err != nil {
			return outcome, newExecError(NewCommand(binary, args...), ErrCancelled, err)
		}
	}

	// A non-zero exit is only an error inside the retry loop; a plain call
	// hands the outcome back. Cancellation causes may wrap an *ExitError, so
	// the check must not walk the chain.
	if IsNonZeroExit(lastErr) {
		return outcome, nil
	}

	return outcome, lastErr
}

// attempt performs one physical execution. A nil error means success.
func (e *Executor) attempt(
	ctx context.Context,
	name string,
	args []string,
	consumer LineConsumer,
	n int,
) (*Outcome, error) {
	binary, err := e.resolveBinary(ctx)
	if err != nil {
		return nil, newExecError(NewCommand(e.Binary(), args...), ErrSpawnFailed, err)
	}

	outcome, err := e.runner.Run(ctx, RunRequest{
		Binary:   binary,
		Args:     args,
		Env:      e.vars,
		Dir:      e.dir,
		Timeout:  e.timeout,
		Consumer: consumer,
	})

	if e.verbose {
		fields := []any{"name", name, "attempt", n, "cmd", FormatCommandLine(binary, args)}
		if outcome != nil {
			fields = append(fields, "exit_code", outcome.ExitCode, "duration", outcome.Duration)
		}

		if err != nil {
			fields = append(fields, "err", err)
		}

		e.logger.Info("attempt finished", fields...)
	}

	if err != nil {
		return outcome, err
	}

	if !e.Accepted(outcome.ExitCode) {
		return outcome, &ExitError{
			Command:  NewCommand(binary, args...),
			ExitCode: outcome.ExitCode,
			Stderr:   []byte(outcome.Stderr),
		}
	}

	return outcome, nil
}

// Accepted reports whether code counts as success: zero or one of the codes
// given to WithAcceptExitCodes.
func (e *Executor) Accepted(code int) bool {
	if code == 0 {
		return true
	}

	_, ok := e.accept[code]

	return ok
}

// resolveBinary returns the pinned binary, or looks up the engine once and
// caches the result. Failed lookups are not cached.
func (e *Executor) resolveBinary(ctx context.Context) (string, error) {
	if e.binary != "" {
		return e.binary, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resolved != "" {
		return e.resolved, nil
	}

	engine, path, err := ResolveEngine(ctx, e.env, e.engine)
	if err != nil {
		return "", err
	}

	if engine != e.engine {
		e.logger.Warn("preferred engine not found, falling back", "preferred", e.engine, "using", engine)
	}

	e.resolved = path

	return path, nil
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-e.clock.After(d):
		return nil
	}
}
