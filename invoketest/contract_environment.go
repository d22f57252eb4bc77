package invoketest

import (
	"github.com/ruffel/cexec"
	"github.com/stretchr/testify/require"
)

func environmentContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryEnvironment,
			Name:        "close-idempotent",
			Description: "Closing an environment multiple times is deterministic and non-fatal",
			Run: func(t T, env cexec.Environment) {
				require.NoError(t, env.Close())
				require.NoError(t, env.Close())
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-start-fails",
			Description: "Start fails deterministically after environment close",
			Run: func(t T, env cexec.Environment) {
				require.NoError(t, env.Close())

				_, err := env.Start(t.Context(), env.TargetOS().ShellCommand("echo cexec-contract"))
				require.ErrorIs(t, err, cexec.ErrEnvironmentClosed)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-run-is-spawn-failure",
			Description: "A Runner on a closed environment reports ErrSpawnFailed",
			Run: func(t T, env cexec.Environment) {
				require.NoError(t, env.Close())

				_, err := cexec.NewRunner(env).Run(t.Context(), cexec.RunRequest{Binary: "echo"})
				require.ErrorIs(t, err, cexec.ErrSpawnFailed)
				require.ErrorIs(t, err, cexec.ErrEnvironmentClosed)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-lookpath-fails",
			Description: "LookPath fails deterministically after environment close",
			Run: func(t T, env cexec.Environment) {
				require.NoError(t, env.Close())

				_, err := env.LookPath(t.Context(), "echo")
				require.Error(t, err)
			},
		},
	}
}
