package invoketest

import (
	"fmt"
	"time"

	"github.com/ruffel/cexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	runExitErrorCode  = 13
	waitExitErrorCode = 23
)

func errorContracts() []TestCase {
	return []TestCase{
		runNonZeroReturnsExitErrorContract(),
		startWaitNonZeroReturnsExitErrorContract(),
		missingBinaryIsSpawnFailedContract(),
		timeoutKillsProcessContract(),
		ttyUnsupportedNormalizedContract(),
	}
}

func exitScript(code int) string {
	return fmt.Sprintf("exit %d", code)
}

func runNonZeroReturnsExitErrorContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "run-nonzero-returns-exiterror",
		Description: "Environment.Run non-zero failures must return *cexec.ExitError",
		Run: func(t T, env cexec.Environment) {
			_, err := env.Run(t.Context(), env.TargetOS().ShellCommand(exitScript(runExitErrorCode)))
			require.Error(t, err)

			var exitErr *cexec.ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, runExitErrorCode, exitErr.ExitCode)
			require.ErrorIs(t, err, cexec.ErrNonZeroExit)
		},
	}
}

func startWaitNonZeroReturnsExitErrorContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "start-wait-nonzero-returns-exiterror",
		Description: "Wait non-zero failures must return *cexec.ExitError",
		Run: func(t T, env cexec.Environment) {
			process, err := env.Start(t.Context(), env.TargetOS().ShellCommand(exitScript(waitExitErrorCode)))
			require.NoError(t, err)
			require.NotNil(t, process)

			defer func() {
				_ = process.Close()
			}()

			err = process.Wait()
			require.Error(t, err)

			var exitErr *cexec.ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, waitExitErrorCode, exitErr.ExitCode)
		},
	}
}

func missingBinaryIsSpawnFailedContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "missing-binary-spawn-failed",
		Description: "A binary that does not exist yields ErrSpawnFailed, in both modes",
		Run: func(t T, env cexec.Environment) {
			runner := cexec.NewRunner(env)
			req := cexec.RunRequest{Binary: "cexec-contract-definitely-missing", Args: []string{"ps"}}

			_, err := runner.Run(t.Context(), req)
			require.ErrorIs(t, err, cexec.ErrSpawnFailed)

			req.Consumer = cexec.CollectLines()

			_, err = runner.Run(t.Context(), req)
			require.ErrorIs(t, err, cexec.ErrSpawnFailed)
		},
	}
}

func timeoutKillsProcessContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "timeout-kills-process",
		Description: "Exceeding the per-run timeout kills the child and yields ErrTimeout",
		Prereq:      unixOnly,
		Run: func(t T, env cexec.Environment) {
			lines := cexec.CollectLines()

			req := shell("echo started; sleep 10 & wait")
			req.Timeout = 300 * time.Millisecond
			req.Consumer = lines

			start := time.Now()
			_, err := cexec.NewRunner(env).Run(t.Context(), req)

			require.ErrorIs(t, err, cexec.ErrTimeout)
			assert.NotErrorIs(t, err, cexec.ErrCancelled)
			assert.Less(t, time.Since(start), 5*time.Second)
			assert.Equal(t, []string{"started"}, lines.Text(cexec.Stdout))
		},
	}
}

func ttyUnsupportedNormalizedContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "tty-unsupported-normalized",
		Description: "If TTY is unsupported by a provider, it must wrap cexec.ErrNotSupported",
		Run: func(t T, env cexec.Environment) {
			cmd := env.TargetOS().ShellCommand("echo cexec-contract-tty")
			cmd.Tty = true

			process, err := env.Start(t.Context(), cmd)
			if err != nil {
				require.ErrorIs(t, err, cexec.ErrNotSupported)

				return
			}

			require.NotNil(t, process)

			defer func() {
				_ = process.Close()
			}()

			require.NoError(t, process.Wait())
		},
	}
}
