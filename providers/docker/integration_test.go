//go:build integration

package docker

import (
	"context"
	"testing"
	"time"

	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/invoketest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testImage = "alpine:3.20"

// startTarget runs a long-lived alpine container for commands to exec into.
func startTarget(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      testImage,
			Cmd:        []string{"sleep", "infinity"},
			WaitingFor: wait.ForExec([]string{"true"}),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)

	if err != nil {
		t.Skipf("Skipping Docker integration test: cannot start container: %v", err)
	}

	return ctr.GetContainerID()
}

func TestIntegration(t *testing.T) {
	id := startTarget(t)

	newEnv := func(t *testing.T) cexec.Environment {
		t.Helper()

		env, err := New(WithContainerID(id))
		require.NoError(t, err)

		return env
	}

	t.Run("contracts", func(t *testing.T) {
		invoketest.Verify(t, newEnv)
	})

	t.Run("executor runs inside container", func(t *testing.T) {
		env := newEnv(t)
		defer env.Close()

		exec := cexec.NewExecutor(env, cexec.WithBinary("uname"))

		out, err := exec.Execute(t.Context(), "uname", []string{"-s"})
		require.NoError(t, err)
		assert.Equal(t, "Linux\n", out.Stdout)
		assert.Equal(t, 1, exec.Log().Len())
	})

	t.Run("missing engine is reported", func(t *testing.T) {
		env := newEnv(t)
		defer env.Close()

		_, _, err := cexec.ResolveEngine(t.Context(), env, cexec.EngineDocker)
		require.ErrorIs(t, err, cexec.ErrEngineNotAvailable)
	})
}
