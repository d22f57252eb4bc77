// Package local provides an implementation of the cexec.Environment interface
// for the local operating system.
//
// It is a thin wrapper around the standard library's "os/exec". Every child is
// started in its own process group so that a timeout, a cancelled context or a
// consumer asking to stop kills the CLI together with anything it spawned.
//
// Usage:
//
//	env, _ := local.New()
//	exec := cexec.NewExecutor(env, cexec.WithEngine(cexec.EnginePodman))
//	out, _ := exec.Execute(ctx, "ps", []string{"ps", "--all"})
//	_ = out
package local
