package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ruffel/cexec"
	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		stream bool
		name   string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- <args...>",
		Short: "Run one container CLI invocation",
		Example: `  cexec run -- ps -a
  cexec run --retries 3 --backoff exp:500ms,5s,2 -- pull alpine:3.20
  cexec run --stream --timeout 30s -- logs -f web
  cexec run --dry-run -- run --rm -e 'GREETING=hello world' alpine env`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = args[0]
			}

			return a.run(cmd, name, args, stream)
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "print output line by line as it is produced")
	cmd.Flags().StringVar(&name, "name", "", "logical name recorded in the execution log (default: first argument)")

	return cmd
}

func (a *app) run(cmd *cobra.Command, name string, args []string, stream bool) error {
	env, err := a.newEnv()
	if err != nil {
		return &exitError{Code: 1, Err: err}
	}
	defer func() { _ = env.Close() }()

	e, err := a.executor(env, nil)
	if err != nil {
		return &exitError{Code: 1, Err: err}
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	var outcome *cexec.Outcome

	if stream {
		outcome, err = e.ExecuteStreaming(cmd.Context(), name, args, printLines(stdout, stderr))
	} else {
		outcome, err = e.Execute(cmd.Context(), name, args)
		if outcome != nil {
			_, _ = io.WriteString(stdout, outcome.Stdout)
			_, _ = io.WriteString(stderr, outcome.Stderr)
		}
	}

	if e.DryRun() {
		_, _ = fmt.Fprint(stdout, renderPreview(e.Log().Entries()))

		return nil
	}

	if err != nil {
		return &exitError{Code: exitCodeFor(err), Err: err}
	}

	if !e.Accepted(outcome.ExitCode) {
		return &exitError{Code: outcome.ExitCode}
	}

	return nil
}

// printLines copies streamed lines to the matching writer.
func printLines(stdout, stderr io.Writer) cexec.LineConsumer {
	return cexec.LineConsumerFunc(func(l cexec.OutputLine) cexec.Decision {
		w := stdout
		if l.Stream == cexec.Stderr {
			w = stderr
		}

		_, _ = fmt.Fprintln(w, l.Text)

		return cexec.Continue()
	})
}

// exitCodeFor passes the child's exit code through when the failure was a
// non-zero exit, and uses 1 otherwise.
func exitCodeFor(err error) int {
	var exitErr *cexec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode > 0 {
		return exitErr.ExitCode
	}

	return 1
}
