package invoketest

import (
	"github.com/ruffel/cexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemContracts() []TestCase {
	return []TestCase{
		{
			Category: CategorySystem,
			Name:     "lookpath",
			Run: func(t T, env cexec.Environment) {
				binary := "sh"
				if env.TargetOS() == cexec.OSWindows {
					binary = "cmd.exe"
				}

				path, err := cexec.NewExecutor(env).LookPath(t.Context(), binary)

				require.NoError(t, err)
				assert.NotEmpty(t, path)
			},
		},
		{
			Category:    CategorySystem,
			Name:        "lookpath-missing",
			Description: "Looking up a binary that does not exist fails",
			Run: func(t T, env cexec.Environment) {
				_, err := env.LookPath(t.Context(), "cexec-contract-definitely-missing")
				require.Error(t, err)
			},
		},
	}
}
