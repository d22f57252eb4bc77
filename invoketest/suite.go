package invoketest

import (
	"context"
	"fmt"
	"testing"

	"github.com/ruffel/cexec"
)

// Standard categories for grouping tests.
const (
	CategoryCore        = "core"
	CategoryStreaming   = "streaming"
	CategoryEnvironment = "environment"
	CategorySystem      = "system"
	CategoryErrors      = "errors"
)

// T is the minimal interface required for testify/assert and require.
type T interface {
	Errorf(format string, args ...any)
	FailNow()
	Skipf(format string, args ...any)
	Context() context.Context
	TempDir() string
	Name() string
}

// TestCase defines a single behavioral contract requirement.
type TestCase struct {
	Category    string
	Name        string
	Description string
	Prereq      func(t T, env cexec.Environment) (ok bool, reason string)
	Run         func(t T, env cexec.Environment)
}

// ID returns the stable, globally unique contract identifier.
func (tc TestCase) ID() string {
	return fmt.Sprintf("%s/%s", tc.Category, tc.Name)
}

// Factory creates a fresh environment for one contract. Some contracts close
// the environment they are given, so environments are never shared.
type Factory func(t *testing.T) cexec.Environment

// Verify is the standard Go test entry point for provider authors.
func Verify(t *testing.T, newEnv Factory) {
	t.Helper()

	for _, tc := range AllContracts() {
		t.Run(tc.ID(), func(t *testing.T) {
			env := newEnv(t)

			t.Cleanup(func() { _ = env.Close() })

			if tc.Prereq != nil {
				ok, reason := tc.Prereq(t, env)
				if !ok {
					t.Skipf("prereq unmet: %s", reason)
				}
			}

			tc.Run(t, env)
		})
	}
}

// unixOnly skips contracts that rely on POSIX sh and sleep.
func unixOnly(_ T, env cexec.Environment) (bool, string) {
	if env.TargetOS() == cexec.OSWindows {
		return false, "requires a POSIX shell"
	}

	return true, ""
}

func shell(script string) cexec.RunRequest {
	return cexec.RunRequest{Binary: "sh", Args: []string{"-c", script}}
}
