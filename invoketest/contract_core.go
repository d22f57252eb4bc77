package invoketest

import (
	"strings"

	"github.com/ruffel/cexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coreContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryCore,
			Name:        "buffered-echo",
			Description: "Buffered runs capture stdout verbatim, trailing newline included",
			Prereq:      unixOnly,
			Run: func(t T, env cexec.Environment) {
				out, err := cexec.NewRunner(env).Run(t.Context(), cexec.RunRequest{
					Binary: "echo",
					Args:   []string{"hello"},
				})
				require.NoError(t, err)
				require.NotNil(t, out)

				assert.Equal(t, "hello\n", out.Stdout)
				assert.Empty(t, out.Stderr)
				assert.Equal(t, 0, out.ExitCode)
			},
		},
		{
			Category:    CategoryCore,
			Name:        "buffered-stderr-separate",
			Description: "Stdout and stderr are captured into separate fields",
			Prereq:      unixOnly,
			Run: func(t T, env cexec.Environment) {
				out, err := cexec.NewRunner(env).Run(t.Context(), shell("echo out; echo err >&2"))
				require.NoError(t, err)

				assert.Equal(t, "out", strings.TrimSpace(out.Stdout))
				assert.Equal(t, "err", strings.TrimSpace(out.Stderr))
			},
		},
		{
			Category:    CategoryCore,
			Name:        "buffered-nonzero-is-outcome",
			Description: "A non-zero exit is reported in the outcome, not as an error",
			Prereq:      unixOnly,
			Run: func(t T, env cexec.Environment) {
				out, err := cexec.NewRunner(env).Run(t.Context(), shell("echo nope >&2; exit 7"))
				require.NoError(t, err)

				assert.Equal(t, 7, out.ExitCode)
				assert.Equal(t, "nope\n", out.Stderr)
			},
		},
		{
			Category:    CategoryCore,
			Name:        "env-and-dir",
			Description: "Extra environment variables and the working directory reach the child",
			Prereq:      unixOnly,
			Run: func(t T, env cexec.Environment) {
				req := shell(`echo "$CEXEC_CONTRACT"; pwd`)
				req.Env = []string{"CEXEC_CONTRACT=present"}
				req.Dir = "/"

				out, err := cexec.NewRunner(env).Run(t.Context(), req)
				require.NoError(t, err)

				assert.Equal(t, "present\n/\n", out.Stdout)
			},
		},
	}
}
