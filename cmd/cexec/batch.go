package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ruffel/cexec"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type (
	// batchEntry is one "name: args..." line of a batch file.
	batchEntry struct {
		Line int
		Name string
		Args []string
	}

	batchResult struct {
		Entry   batchEntry
		Outcome *cexec.Outcome
		Err     error
	}
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [flags] <file>",
		Short: "Run the invocations listed in a file concurrently",
		Long: `Run the invocations listed in a file, one per line:

  # comment
  net:    network create app-net
  web:    run -d --network app-net --name web nginx
  smoke:  run --rm --network app-net curlimages/curl -sf http://web

Arguments are split like a POSIX shell would. Use "-" to read from stdin.
All invocations share one execution log, printed when the batch ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.batch(cmd, args[0])
		},
	}

	cmd.Flags().Int("parallel", 0, "maximum concurrent invocations (default from config)")

	return cmd
}

func (a *app) batch(cmd *cobra.Command, path string) error {
	entries, err := readBatch(cmd.InOrStdin(), path)
	if err != nil {
		return &exitError{Code: 1, Err: err}
	}

	env, err := a.newEnv()
	if err != nil {
		return &exitError{Code: 1, Err: err}
	}
	defer func() { _ = env.Close() }()

	shared := cexec.NewExecutionLog()

	e, err := a.executor(env, shared)
	if err != nil {
		return &exitError{Code: 1, Err: err}
	}

	results := make([]batchResult, len(entries))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(a.cfg.Parallel)

	for i, entry := range entries {
		g.Go(func() error {
			outcome, err := e.Execute(ctx, entry.Name, entry.Args)
			results[i] = batchResult{Entry: entry, Outcome: outcome, Err: err}

			// Runner failures stop the rest of the batch; non-zero exits, even
			// after retries, only fail their own entry.
			if err != nil && !cexec.IsNonZeroExit(err) {
				return err
			}

			return nil
		})
	}

	_ = g.Wait()

	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(out, titleStyle.Render("Execution log"))
	_, _ = fmt.Fprint(out, renderPreview(shared.Entries()))

	if e.DryRun() {
		return nil
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, titleStyle.Render("Results"))

	failed := 0

	for _, r := range results {
		ok := r.Err == nil && r.Outcome != nil && e.Accepted(r.Outcome.ExitCode)
		if !ok {
			failed++
		}

		_, _ = fmt.Fprintln(out, formatResult(r, ok))
	}

	if failed > 0 {
		return &exitError{Code: 1, Err: fmt.Errorf("%d of %d invocations failed", failed, len(results))}
	}

	return nil
}

func formatResult(r batchResult, ok bool) string {
	status := passedStyle.Render("ok  ")
	if !ok {
		status = failedStyle.Render("FAIL")
	}

	var detail string

	switch {
	case r.Err != nil:
		detail = errorStyle.Render(r.Err.Error())
	case r.Outcome != nil:
		detail = infoStyle.Render(fmt.Sprintf("exit %d in %s", r.Outcome.ExitCode, r.Outcome.Duration.Round(time.Millisecond)))
	}

	return fmt.Sprintf("%s %-16s %s", status, r.Entry.Name, detail)
}

func readBatch(stdin io.Reader, path string) ([]batchEntry, error) {
	if path == "-" {
		return parseBatch(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := parseBatch(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return entries, nil
}

// parseBatch reads "name: args..." lines. Blank lines and lines starting with
// '#' are skipped.
func parseBatch(r io.Reader) ([]batchEntry, error) {
	var (
		entries []batchEntry
		errs    []error
	)

	scanner := bufio.NewScanner(r)

	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, rest, found := strings.Cut(line, ":")
		name = strings.TrimSpace(name)

		if !found || name == "" || strings.ContainsAny(name, " \t") {
			errs = append(errs, fmt.Errorf("line %d: expected \"name: args...\"", n))

			continue
		}

		args, err := cexec.ParseArgs(rest)
		if errors.Is(err, cexec.ErrEmptyArgs) {
			errs = append(errs, fmt.Errorf("line %d: %q has no arguments", n, name))

			continue
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n, err))

			continue
		}

		entries = append(entries, batchEntry{Line: n, Name: name, Args: args})
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return entries, nil
}
