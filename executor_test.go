package cexec_test

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/internal/testutil"
	"github.com/ruffel/cexec/providers/mock"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExecutor_DryRun(t *testing.T) {
	t.Parallel()

	env := mock.New()
	clock := testutil.NewFakeClock(time.Time{})
	e := cexec.NewExecutor(env, cexec.WithDryRun(true), cexec.WithClock(clock))

	out, err := e.Execute(t.Context(), "run", []string{"run", "--name", "x", "alpine"})
	require.NoError(t, err)
	assert.Equal(t, &cexec.Outcome{}, out)

	entries := e.Log().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, cexec.Invocation{
		Name:      "run",
		Binary:    "docker",
		Args:      []string{"run", "--name", "x", "alpine"},
		Simulated: true,
		Timestamp: clock.Now(),
	}, entries[0])

	env.AssertNotCalled(t, "Start", tmock.Anything, tmock.Anything)
	env.AssertNotCalled(t, "LookPath", tmock.Anything)
}

func TestExecutor_DryRunNeverSpawns(t *testing.T) {
	t.Parallel()

	env := mock.New()
	e := cexec.NewExecutor(env, cexec.WithDryRun(true), cexec.WithRetry(5, time.Hour))
	assert.True(t, e.DryRun())

	calls := [][]string{
		{"network", "create", "n1"},
		{"run", "-d", "--network", "n1", "nginx"},
		{"ps", "-a"},
	}

	for i, args := range calls {
		if i%2 == 0 {
			_, err := e.Execute(t.Context(), args[0], args)
			require.NoError(t, err)
		} else {
			_, err := e.ExecuteStreaming(t.Context(), args[0], args, cexec.CollectLines())
			require.NoError(t, err)
		}
	}

	entries := e.Log().Entries()
	require.Len(t, entries, len(calls))

	for _, entry := range entries {
		assert.True(t, entry.Simulated)
	}

	env.AssertNotCalled(t, "Start", tmock.Anything, tmock.Anything)

	assert.Equal(t,
		"[1] docker network create n1 (dry-run)\n"+
			"[2] docker run -d --network n1 nginx (dry-run)\n"+
			"[3] docker ps -a (dry-run)\n",
		e.Log().Preview())
}

func TestExecutor_ResolvesEngineOnce(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.OnLookPath("docker").Return("/usr/bin/docker", nil).Once()
	proc := env.ExpectCommand("/usr/bin/docker", []string{"ps"}, mock.Exit(0).WithStdout("ok\n"))

	e := cexec.NewExecutor(env)

	for range 3 {
		out, err := e.Execute(t.Context(), "ps", []string{"ps"})
		require.NoError(t, err)
		assert.Equal(t, "ok\n", out.Stdout)
	}

	assert.Equal(t, 3, proc.Starts())
	env.AssertNumberOfCalls(t, "LookPath", 1)
	assert.Equal(t, "docker", e.Log().Entries()[0].Binary)
}

func TestExecutor_FallsBackToPodman(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	env := mock.New()
	env.OnLookPath("docker").Return("", exec.ErrNotFound)
	env.OnLookPath("podman").Return("/usr/bin/podman", nil)
	env.ExpectCommand("/usr/bin/podman", []string{"version"}, mock.Exit(0))

	e := cexec.NewExecutor(env, cexec.WithLogger(log.New(&logs)))

	_, err := e.Execute(t.Context(), "version", []string{"version"})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "falling back")
}

func TestExecutor_NoEngine(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.OnLookPath("podman").Return("", exec.ErrNotFound)
	env.OnLookPath("docker").Return("", exec.ErrNotFound)

	e := cexec.NewExecutor(env, cexec.WithEngine(cexec.EnginePodman))

	_, err := e.Execute(t.Context(), "ps", []string{"ps"})
	require.ErrorIs(t, err, cexec.ErrSpawnFailed)
	require.ErrorIs(t, err, cexec.ErrEngineNotAvailable)

	// A failed lookup is not cached.
	_, err = e.Execute(t.Context(), "ps", []string{"ps"})
	require.Error(t, err)
	env.AssertNumberOfCalls(t, "LookPath", 4)
}

func TestExecutor_WindowsBinaryName(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.OS = cexec.OSWindows

	e := cexec.NewExecutor(env, cexec.WithDryRun(true))
	assert.Equal(t, "docker.exe", e.Binary())

	pinned := cexec.NewExecutor(env, cexec.WithBinary(`C:\tools\podman.exe`))
	assert.Equal(t, `C:\tools\podman.exe`, pinned.Binary())
}

func TestExecutor_NonZeroWithoutPolicy(t *testing.T) {
	t.Parallel()

	env := mock.New()
	proc := env.ExpectCommand("docker", []string{"rm", "gone"}, mock.Exit(1).WithStderr("Error: No such container: gone\n"))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"))

	out, err := e.Execute(t.Context(), "rm", []string{"rm", "gone"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, "Error: No such container: gone\n", out.Stderr)
	assert.Equal(t, 1, proc.Starts())
}

func TestExecutor_RetriesExhausted(t *testing.T) {
	t.Parallel()

	env := mock.New()
	proc := env.ExpectCommand("docker", []string{"pull", "alpine"}, mock.Exit(1).WithStderr("net/http: TLS handshake timeout\n"))

	clock := testutil.NewAutoClock()

	var (
		mu       sync.Mutex
		attempts []int
	)

	policy := cexec.NewRetryPolicy().
		WithMaxAttempts(3).
		WithBackoff(cexec.Fixed(10 * time.Millisecond)).
		WithObserver(cexec.RetryObserverFunc(func(attempt int, err error) {
			mu.Lock()
			defer mu.Unlock()

			attempts = append(attempts, attempt)

			assert.ErrorIs(t, err, cexec.ErrNonZeroExit)
		}))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"), cexec.WithRetryPolicy(policy), cexec.WithClock(clock))

	start := clock.Now()
	out, err := e.Execute(t.Context(), "pull", []string{"pull", "alpine"})

	require.ErrorIs(t, err, cexec.ErrRetriesExhausted)

	var exhausted *cexec.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)

	var exitErr *cexec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Contains(t, string(exitErr.Stderr), "TLS handshake timeout")

	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, 3, proc.Starts())
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, clock.Sleeps())
	assert.GreaterOrEqual(t, clock.Since(start), 20*time.Millisecond)
	assert.Equal(t, 1, e.Log().Len())
}

func TestExecutor_BackoffSchedule(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.ExpectCommand("docker", []string{"start", "db"}, mock.Exit(125))

	clock := testutil.NewAutoClock()
	policy := cexec.NewRetryPolicy().
		WithMaxAttempts(5).
		WithBackoff(cexec.Exponential(100*time.Millisecond, 300*time.Millisecond, 2))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"), cexec.WithRetryPolicy(policy), cexec.WithClock(clock))

	_, err := e.Execute(t.Context(), "start", []string{"start", "db"})
	require.ErrorIs(t, err, cexec.ErrRetriesExhausted)

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, clock.Sleeps())
}

func TestExecutor_SingleAttemptPolicy(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.ExpectCommand("docker", []string{"ps"}, mock.Exit(2))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"), cexec.WithRetryPolicy(cexec.NewRetryPolicy()))

	_, err := e.Execute(t.Context(), "ps", []string{"ps"})
	require.ErrorIs(t, err, cexec.ErrRetriesExhausted)
}

func TestExecutor_AcceptExitCodes(t *testing.T) {
	t.Parallel()

	env := mock.New()
	proc := env.ExpectCommand("docker", []string{"network", "rm", "n1"}, mock.Exit(1))

	e := cexec.NewExecutor(env,
		cexec.WithBinary("docker"),
		cexec.WithRetry(3, time.Millisecond),
		cexec.WithAcceptExitCodes(1),
	)

	out, err := e.Execute(t.Context(), "network rm", []string{"network", "rm", "n1"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, 1, proc.Starts(), "an accepted code is not retried")
}

func TestExecutor_RetriesSpawnFailures(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.On("Start", tmock.Anything, tmock.Anything).Return(nil, errors.New("fork/exec: resource temporarily unavailable"))

	e := cexec.NewExecutor(env,
		cexec.WithBinary("docker"),
		cexec.WithRetry(2, time.Millisecond),
		cexec.WithClock(testutil.NewAutoClock()),
	)

	out, err := e.Execute(t.Context(), "ps", []string{"ps"})
	require.ErrorIs(t, err, cexec.ErrRetriesExhausted)
	require.ErrorIs(t, err, cexec.ErrSpawnFailed)
	assert.Nil(t, out)
	env.AssertNumberOfCalls(t, "Start", 2)
}

func TestExecutor_RawErrorsWithoutPolicy(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.On("Start", tmock.Anything, tmock.Anything).Return(nil, exec.ErrNotFound)

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"))

	_, err := e.Execute(t.Context(), "ps", []string{"ps"})
	require.ErrorIs(t, err, cexec.ErrSpawnFailed)
	assert.NotErrorIs(t, err, cexec.ErrRetriesExhausted)
}

func TestExecutor_CancelledSleep(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.ExpectCommand("docker", []string{"ps"}, mock.Exit(1))

	// A manual clock never fires, so only cancellation ends the sleep.
	clock := testutil.NewFakeClock(time.Time{})

	e := cexec.NewExecutor(env,
		cexec.WithBinary("docker"),
		cexec.WithRetry(3, time.Hour),
		cexec.WithClock(clock),
	)

	ctx, cancel := context.WithCancel(t.Context())

	errCh := make(chan error, 1)

	go func() {
		_, err := e.Execute(ctx, "ps", []string{"ps"})
		errCh <- err
	}()

	require.True(t, clock.BlockUntil(1, 5*time.Second))
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, cexec.ErrCancelled)
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("sleep ignored cancellation")
	}
}

func TestExecutor_CancelCauseWrappingExitError(t *testing.T) {
	t.Parallel()

	// errgroup-style cancellation: the cause is another call's exit failure.
	cause := &cexec.RetriesExhaustedError{Attempts: 2, Last: &cexec.ExitError{ExitCode: 2}}

	t.Run("start fails", func(t *testing.T) {
		t.Parallel()

		env := mock.New()
		env.On("Start", tmock.Anything, tmock.Anything).Return(nil, context.Canceled)

		ctx, cancel := context.WithCancelCause(t.Context())
		cancel(&cexec.ExitError{ExitCode: 2})

		e := cexec.NewExecutor(env, cexec.WithBinary("docker"))

		out, err := e.Execute(ctx, "ps", []string{"ps"})
		require.ErrorIs(t, err, cexec.ErrCancelled)
		assert.False(t, cexec.IsNonZeroExit(err))
		assert.Nil(t, out)
	})

	for name, opts := range map[string][]cexec.Option{
		"mid-run without policy": {cexec.WithBinary("docker")},
		"mid-run with policy":    {cexec.WithBinary("docker"), cexec.WithRetry(3, 0)},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			env := mock.New()
			proc := env.ExpectCommand("docker", []string{"pull", "alpine"}, mock.Exit(0).WithDelay(time.Minute))

			ctx, cancel := context.WithCancelCause(t.Context())
			cancel(cause)

			e := cexec.NewExecutor(env, opts...)

			_, err := e.Execute(ctx, "pull", []string{"pull", "alpine"})
			require.Error(t, err)
			require.ErrorIs(t, err, cexec.ErrCancelled)
			assert.NotErrorIs(t, err, cexec.ErrSpawnFailed)
			assert.False(t, cexec.IsNonZeroExit(err))
			assert.NotErrorIs(t, err, cexec.ErrRetriesExhausted)
			assert.Equal(t, 1, proc.Starts())
		})
	}
}

func TestExecutor_StreamingCancelIsTerminal(t *testing.T) {
	t.Parallel()

	env := mock.New()
	proc := env.ExpectCommand("docker", []string{"logs", "-f", "web"},
		mock.Exit(0).WithStdout("a\n", "b\n", "c\n").WithDelay(10*time.Second))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"), cexec.WithRetry(3, 0))

	consumer := cexec.LineConsumerFunc(func(l cexec.OutputLine) cexec.Decision {
		if l.Text == "b" {
			return cexec.Stop("found b")
		}

		return cexec.Continue()
	})

	_, err := e.ExecuteStreaming(t.Context(), "logs", []string{"logs", "-f", "web"}, consumer)
	require.ErrorIs(t, err, cexec.ErrCancelled)
	assert.NotErrorIs(t, err, cexec.ErrRetriesExhausted)
	assert.Equal(t, 1, proc.Starts())
}

func TestExecutor_StreamingNilConsumer(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.ExpectCommand("docker", []string{"pull", "alpine"}, mock.Exit(0).WithStdout("Pulling...\n"))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"))

	out, err := e.ExecuteStreaming(t.Context(), "pull", []string{"pull", "alpine"}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Stdout)
}

func TestExecutor_ChannelConsumerClosedAfterRun(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.ExpectCommand("docker", []string{"ps"}, mock.Exit(0).WithStdout("a\n", "b\n"))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"))
	consumer := cexec.NewChannelConsumer(t.Context(), 4)

	_, err := e.ExecuteStreaming(t.Context(), "ps", []string{"ps"}, consumer)
	require.NoError(t, err)

	var got []string
	for l := range consumer.Lines() {
		got = append(got, l.Text)
	}

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestExecutor_VerboseLogging(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	env := mock.New()
	env.ExpectCommand("docker", []string{"ps"}, mock.Exit(0))

	e := cexec.NewExecutor(env,
		cexec.WithBinary("docker"),
		cexec.WithVerbose(true),
		cexec.WithLogger(log.NewWithOptions(&logs, log.Options{Formatter: log.LogfmtFormatter})),
	)

	_, err := e.Execute(t.Context(), "ps", []string{"ps"})
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "attempt finished")
	assert.Contains(t, out, "name=ps")
	assert.Contains(t, out, "exit_code=0")
}

func TestExecutor_VerboseDefaultsToStderr(t *testing.T) {
	t.Parallel()

	quiet := cexec.NewExecutor(mock.New())
	assert.Empty(t, quiet.Logger().GetPrefix())

	verbose := cexec.NewExecutor(mock.New(), cexec.WithVerbose(true))
	assert.Equal(t, "cexec", verbose.Logger().GetPrefix())

	custom := log.New(&bytes.Buffer{})
	explicit := cexec.NewExecutor(mock.New(), cexec.WithVerbose(true), cexec.WithLogger(custom))
	assert.Same(t, custom, explicit.Logger())
}

func TestExecutor_SharedLog(t *testing.T) {
	t.Parallel()

	shared := cexec.NewExecutionLog()
	env := mock.New()

	a := cexec.NewExecutor(env, cexec.WithDryRun(true), cexec.WithLog(shared))
	b := cexec.NewExecutor(env, cexec.WithDryRun(true), cexec.WithLog(shared), cexec.WithEngine(cexec.EnginePodman))

	_, _ = a.Execute(t.Context(), "ps", []string{"ps"})
	_, _ = b.Execute(t.Context(), "ps", []string{"ps"})

	assert.Same(t, shared, a.Log())
	assert.Equal(t, "[1] docker ps (dry-run)\n[2] podman ps (dry-run)\n", shared.Preview())
}

func TestExecutor_ArgsAreCopied(t *testing.T) {
	t.Parallel()

	e := cexec.NewExecutor(mock.New(), cexec.WithDryRun(true))

	args := []string{"run", "alpine"}
	_, _ = e.Execute(t.Context(), "run", args)
	args[1] = "busybox"

	assert.True(t, strings.HasSuffix(e.Log().Preview(), "run alpine (dry-run)\n"))
}
