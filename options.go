package cexec

import (
	"time"

	"github.com/charmbracelet/log"
)

// Option configures an Executor.
type Option func(*Executor)

// WithDryRun records invocations without running anything.
func WithDryRun(enabled bool) Option {
	return func(e *Executor) {
		e.dryRun = enabled
	}
}

// WithVerbose logs every attempt (and every simulated call) at info level.
// Without WithLogger the lines go to stderr.
func WithVerbose(enabled bool) Option {
	return func(e *Executor) {
		e.verbose = enabled
	}
}

// WithRetryPolicy enables retries. Without a policy each call makes exactly
// one attempt and failures are returned unwrapped.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Executor) {
		e.policy = &p
	}
}

// WithRetry is shorthand for a policy of attempts total tries with a fixed delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return WithRetryPolicy(NewRetryPolicy().WithMaxAttempts(attempts).WithBackoff(Fixed(max(delay, 0))))
}

// WithBinary pins the CLI binary (name or path), skipping engine lookup.
func WithBinary(path string) Option {
	return func(e *Executor) {
		e.binary = path
	}
}

// WithEngine selects which container CLI to look up. Defaults to docker, with
// podman as fallback.
func WithEngine(t EngineType) Option {
	return func(e *Executor) {
		e.engine = t
	}
}

// WithTimeout bounds each attempt. It does not bound the whole retry sequence.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithEnv adds "KEY=VALUE" pairs to every spawned process.
func WithEnv(vars ...string) Option {
	return func(e *Executor) {
		e.vars = append(e.vars, vars...)
	}
}

// WithDir sets the working directory of every spawned process.
func WithDir(dir string) Option {
	return func(e *Executor) {
		e.dir = dir
	}
}

// WithAcceptExitCodes treats the given non-zero exit codes as success.
func WithAcceptExitCodes(codes ...int) Option {
	return func(e *Executor) {
		if e.accept == nil {
			e.accept = make(map[int]struct{}, len(codes))
		}

		for _, c := range codes {
			e.accept[c] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for verbose output.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLog makes the Executor append to an existing log, e.g. one shared by
// several executors.
func WithLog(l *ExecutionLog) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock replaces the time source used for timestamps and backoff sleeps.
func WithClock(c Clock) Option {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}
