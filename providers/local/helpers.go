package local

import (
	"context"

	"github.com/ruffel/cexec"
)

// Execute runs one invocation of the container CLI on this machine using a
// throwaway environment and Executor.
func Execute(ctx context.Context, name string, args []string, opts ...cexec.Option) (*cexec.Outcome, error) {
	env, err := New()
	if err != nil {
		return nil, err
	}

	defer func() { _ = env.Close() }()

	return cexec.NewExecutor(env, opts...).Execute(ctx, name, args)
}

// RunShell runs a shell script locally and captures its output. It bypasses
// engine resolution and is meant for tooling around the CLI.
func RunShell(ctx context.Context, script string, opts ...cexec.Option) (*cexec.Outcome, error) {
	env, err := New()
	if err != nil {
		return nil, err
	}

	defer func() { _ = env.Close() }()

	shell := env.TargetOS().ShellCommand(script)
	opts = append(opts, cexec.WithBinary(shell.Cmd))

	return cexec.NewExecutor(env, opts...).Execute(ctx, "shell", shell.Args)
}
