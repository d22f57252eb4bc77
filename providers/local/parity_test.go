package local_test

import (
	"testing"

	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/invoketest"
	"github.com/ruffel/cexec/providers/local"
	"github.com/stretchr/testify/require"
)

func TestLocalParity(t *testing.T) {
	t.Parallel()

	invoketest.Verify(t, func(t *testing.T) cexec.Environment {
		t.Helper()

		env, err := local.New()
		require.NoError(t, err)

		return env
	})
}
