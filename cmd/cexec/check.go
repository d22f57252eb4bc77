package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/invoketest"
	"github.com/spf13/cobra"
)

type (
	// envFactory opens a fresh environment; contracts may close the one they get.
	envFactory func() (cexec.Environment, error)

	contractResult struct {
		passed  bool
		skipped bool
		msg     string
	}

	// contractT adapts invoketest.T for running contracts outside go test.
	// FailNow and Skipf unwind with a panic that runContract recovers.
	contractT struct {
		ctx      context.Context //nolint:containedctx
		name     string
		failed   bool
		skipped  bool
		msg      string
		tempDirs []string
	}

	failNow struct{}
	skipNow struct{}
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("33"))

	catStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the provider contract suite against the local machine and the selected target",
		Long: `Run the provider contract suite: buffered and streamed output, exit codes,
timeouts, cancellation and lookups. The local environment is always checked;
--container or --ssh-host add a second column so the two can be compared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envs := map[string]envFactory{"local": targetFlags{}.open}
			if name := a.flags.target.name(); name != "local" {
				envs[name] = a.newEnv
			}

			matrix := runMatrix(cmd.Context(), envs)

			if failures := renderMatrix(cmd.OutOrStdout(), sortedNames(envs), matrix); failures > 0 {
				return &exitError{Code: 1, Err: fmt.Errorf("%d contract(s) failed", failures)}
			}

			return nil
		},
	}
}

func (c *contractT) Errorf(f string, a ...any) {
	c.failed = true
	c.msg = fmt.Sprintf(f, a...)
}

func (c *contractT) FailNow() {
	c.failed = true

	panic(failNow{})
}

func (c *contractT) Skipf(f string, a ...any) {
	c.skipped = true
	c.msg = fmt.Sprintf(f, a...)

	panic(skipNow{})
}

func (c *contractT) Context() context.Context { return c.ctx }

func (c *contractT) Name() string { return c.name }

func (c *contractT) TempDir() string {
	dir, err := os.MkdirTemp("", "cexec-check-*")
	if err != nil {
		panic(err)
	}

	c.tempDirs = append(c.tempDirs, dir)

	return dir
}

func (c *contractT) cleanup() {
	for _, dir := range c.tempDirs {
		_ = os.RemoveAll(dir)
	}
}

// runMatrix returns results keyed by contract ID, then environment name.
func runMatrix(ctx context.Context, envs map[string]envFactory) map[string]map[string]contractResult {
	data := make(map[string]map[string]contractResult)

	for _, tc := range invoketest.AllContracts() {
		row := make(map[string]contractResult, len(envs))

		for name, open := range envs {
			row[name] = runContract(ctx, tc, open)
		}

		data[tc.ID()] = row
	}

	return data
}

func runContract(ctx context.Context, tc invoketest.TestCase, open envFactory) contractResult {
	t := &contractT{ctx: ctx, name: tc.ID()}
	defer t.cleanup()

	env, err := open()
	if err != nil {
		return contractResult{msg: err.Error()}
	}

	defer func() { _ = env.Close() }()

	func() {
		defer func() {
			if r := recover(); r != nil {
				switch r.(type) {
				case failNow, skipNow:
				default:
					panic(r)
				}
			}
		}()

		if tc.Prereq != nil {
			if ok, reason := tc.Prereq(t, env); !ok {
				t.Skipf("prereq unmet: %s", reason)
			}
		}

		tc.Run(t, env)
	}()

	return contractResult{
		passed:  !t.failed && !t.skipped,
		skipped: t.skipped,
		msg:     t.msg,
	}
}

func sortedNames(envs map[string]envFactory) []string {
	names := make([]string, 0, len(envs))
	for n := range envs {
		names = append(names, n)
	}

	// local first, then the target.
	if len(names) == 2 && names[0] != "local" {
		names[0], names[1] = names[1], names[0]
	}

	return names
}

// renderMatrix prints one row per contract and returns the number of failures.
func renderMatrix(w io.Writer, names []string, matrix map[string]map[string]contractResult) int {
	const nameWidth, colWidth = 36, 8

	var header strings.Builder

	header.WriteString(headerStyle.Render(fmt.Sprintf("%-*s", nameWidth, "CONTRACT")))

	for _, n := range names {
		header.WriteString(" ")
		header.WriteString(headerStyle.Render(fmt.Sprintf("%-*s", colWidth, strings.ToUpper(n))))
	}

	_, _ = fmt.Fprintln(w, header.String())

	var (
		category string
		issues   []string
	)

	for _, tc := range invoketest.AllContracts() {
		if tc.Category != category {
			category = tc.Category
			_, _ = fmt.Fprintln(w, catStyle.Render(strings.ToUpper(category)))
		}

		var line strings.Builder

		line.WriteString(fmt.Sprintf("%-*s", nameWidth, fitColumn(tc.Name, nameWidth)))

		for _, n := range names {
			res := matrix[tc.ID()][n]

			status, style := "PASSED", passedStyle

			switch {
			case res.skipped:
				status, style = "SKIPPED", warningStyle
			case !res.passed:
				status, style = "FAILED", failedStyle
				issues = append(issues, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(n), tc.ID(), res.msg))
			}

			line.WriteString(" ")
			line.WriteString(style.Render(fmt.Sprintf("%-*s", colWidth, status)))
		}

		_, _ = fmt.Fprintln(w, line.String())
	}

	if len(issues) > 0 {
		_, _ = fmt.Fprintln(w, errorStyle.Render("\nFailures:"))

		for _, issue := range issues {
			_, _ = fmt.Fprintf(w, "  - %s\n", issue)
		}
	}

	return len(issues)
}

func fitColumn(value string, width int) string {
	if len(value) <= width {
		return value
	}

	return value[:width-1] + "…"
}
