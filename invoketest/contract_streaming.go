package invoketest

import (
	"time"

	"github.com/ruffel/cexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamingContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryStreaming,
			Name:        "per-stream-order",
			Description: "Lines of one stream reach the consumer in the order they were written",
			Prereq:      unixOnly,
			Run: func(t T, env cexec.Environment) {
				lines := cexec.CollectLines()

				req := shell("echo line1; sleep 0.1; echo line2; echo warn >&2; printf tail")
				req.Consumer = lines

				out, err := cexec.NewRunner(env).Run(t.Context(), req)
				require.NoError(t, err)

				assert.Equal(t, []string{"line1", "line2", "tail"}, lines.Text(cexec.Stdout))
				assert.Equal(t, []string{"warn"}, lines.Text(cexec.Stderr))
				assert.Empty(t, out.Stdout)
				assert.Empty(t, out.Stderr)
				assert.Equal(t, 0, out.ExitCode)
			},
		},
		{
			Category:    CategoryStreaming,
			Name:        "lines-before-exit",
			Description: "A line is delivered while the process is still running",
			Prereq:      unixOnly,
			Run: func(t T, env cexec.Environment) {
				start := time.Now()

				var firstAt time.Duration

				req := shell("echo first; sleep 1; echo second")
				req.Consumer = cexec.LineConsumerFunc(func(l cexec.OutputLine) cexec.Decision {
					if l.Text == "first" {
						firstAt = time.Since(start)
					}

					return cexec.Continue()
				})

				_, err := cexec.NewRunner(env).Run(t.Context(), req)
				require.NoError(t, err)

				assert.Less(t, firstAt, 900*time.Millisecond)
			},
		},
		{
			Category:    CategoryStreaming,
			Name:        "stop-kills-process",
			Description: "A consumer returning Stop terminates the child and yields ErrCancelled",
			Prereq:      unixOnly,
			Run: func(t T, env cexec.Environment) {
				seen := 0
				start := time.Now()

				req := shell("i=0; while true; do echo $i; i=$((i+1)); sleep 0.05; done")
				req.Consumer = cexec.LineConsumerFunc(func(cexec.OutputLine) cexec.Decision {
					seen++
					if seen == 3 {
						return cexec.Stop("enough")
					}

					return cexec.Continue()
				})

				_, err := cexec.NewRunner(env).Run(t.Context(), req)
				require.ErrorIs(t, err, cexec.ErrCancelled)
				assert.NotErrorIs(t, err, cexec.ErrTimeout)
				assert.Equal(t, 3, seen)
				assert.Less(t, time.Since(start), 5*time.Second)
			},
		},
	}
}
