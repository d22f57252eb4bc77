package cexec_test

import (
	"testing"

	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/providers/mock"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type containerRow struct {
	ID    string `json:"ID"`
	Names string `json:"Names"`
	State string `json:"State"`
}

func TestDecodeJSONLines(t *testing.T) {
	t.Parallel()

	out := `{"ID":"a1","Names":"web","State":"running"}

{"ID":"b2","Names":"db","State":"exited"}
`

	rows, err := cexec.DecodeJSONLines[containerRow](out)
	require.NoError(t, err)
	assert.Equal(t, []containerRow{
		{ID: "a1", Names: "web", State: "running"},
		{ID: "b2", Names: "db", State: "exited"},
	}, rows)

	rows, err = cexec.DecodeJSONLines[containerRow]("")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = cexec.DecodeJSONLines[containerRow]("{\"ID\":\"a1\"}\nnot json\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestExecuteJSONLines(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.ExpectCommand("docker", []string{"ps", "-a", "--format", "{{json .}}"},
		mock.Exit(0).WithStdout(`{"ID":"a1","Names":"web","State":"running"}`+"\n"))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"))

	rows, err := cexec.ExecuteJSONLines[containerRow](t.Context(), e, "ps", []string{"ps", "-a"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "web", rows[0].Names)
}

func TestExecuteJSONLines_NonZeroExit(t *testing.T) {
	t.Parallel()

	env := mock.New()
	env.ExpectCommand("docker", []string{"ps", "--format", "{{json .}}"},
		mock.Exit(1).WithStderr("Cannot connect to the Docker daemon\n"))

	e := cexec.NewExecutor(env, cexec.WithBinary("docker"))

	_, err := cexec.ExecuteJSONLines[containerRow](t.Context(), e, "ps", []string{"ps"})
	require.ErrorIs(t, err, cexec.ErrNonZeroExit)

	var exitErr *cexec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, string(exitErr.Stderr), "Cannot connect")
}

func TestExecuteJSONLines_DryRun(t *testing.T) {
	t.Parallel()

	env := mock.New()
	e := cexec.NewExecutor(env, cexec.WithDryRun(true))

	rows, err := cexec.ExecuteJSONLines[containerRow](t.Context(), e, "ps", []string{"ps"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "[1] docker ps --format '{{json .}}' (dry-run)\n", e.Log().Preview())
	env.AssertNotCalled(t, "Start", tmock.Anything, tmock.Anything)
}

func TestJSONLinesConsumer(t *testing.T) {
	t.Parallel()

	var names []string

	c := cexec.NewJSONLinesConsumer(func(r containerRow) cexec.Decision {
		names = append(names, r.Names)

		return cexec.Continue()
	})

	assert.False(t, c.Consume(cexec.OutputLine{Stream: cexec.Stdout, Text: `{"Names":"web"}`}).Stopped())
	assert.False(t, c.Consume(cexec.OutputLine{Stream: cexec.Stderr, Text: "warning: not json"}).Stopped())
	assert.False(t, c.Consume(cexec.OutputLine{Stream: cexec.Stdout, Text: "  "}).Stopped())

	d := c.Consume(cexec.OutputLine{Stream: cexec.Stdout, Text: "{broken"})
	assert.True(t, d.Stopped())
	require.Error(t, c.Err())
	assert.Equal(t, []string{"web"}, names)
}
