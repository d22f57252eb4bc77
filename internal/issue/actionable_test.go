package issue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "resolve container engine"},
			want: "failed to resolve container engine",
		},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "read batch file", Resource: "jobs.txt"},
			want: "failed to read batch file: jobs.txt",
		},
		{
			name: "with cause",
			err: &ActionableError{
				Operation: "read batch file",
				Resource:  "jobs.txt",
				Cause:     errors.New("no such file"),
			},
			want: "failed to read batch file: jobs.txt: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("not found")

	err := NewErrorContext().
		WithOperation("resolve container engine").
		WithResource("podman").
		WithSuggestion("Install podman").
		WithSuggestion("Or pass --binary").
		Wrap(cause).
		BuildError()

	require.Error(t, err)
	require.ErrorIs(t, err, cause)

	var ae *ActionableError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.HasSuggestions())
	assert.Equal(t, []string{"Install podman", "Or pass --binary"}, ae.Suggestions)
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewErrorContext().WithResource("x").Build())
	assert.NoError(t, NewErrorContext().BuildError())
}

func TestFormat(t *testing.T) {
	t.Parallel()

	root := errors.New("exec: not found")
	ae := NewErrorContext().
		WithOperation("run command").
		WithSuggestion("check PATH").
		Wrap(fmt.Errorf("spawn: %w", root)).
		Build()

	plain := Format(ae, false)
	assert.Contains(t, plain, "failed to run command: spawn: exec: not found")
	assert.Contains(t, plain, "  • check PATH")
	assert.NotContains(t, plain, "Error chain")

	verbose := Format(fmt.Errorf("outer: %w", ae), true)
	assert.Contains(t, verbose, "Error chain:")
	assert.Contains(t, verbose, "2. exec: not found")

	assert.Equal(t, "boom", Format(errors.New("boom"), true))
	assert.Empty(t, Format(nil, false))
}
