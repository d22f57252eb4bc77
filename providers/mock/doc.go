// Package mock provides a controllable implementation of cexec.Environment
// for testing code built on the Executor without spawning processes.
//
// Usage:
//
//	env := mock.New()
//	env.OnLookPath("docker").Return("/usr/bin/docker", nil)
//	proc := env.ExpectCommand("/usr/bin/docker", []string{"ps"}, mock.Exit(0).WithStdout("ok\n"))
//	exec := cexec.NewExecutor(env)
//	// ... run, then inspect proc.Starts()
package mock
