// Package ssh provides a cexec.Environment for remote hosts reached over SSH.
//
// It is the way to drive a docker or podman CLI installed on another machine:
// every command opens its own session on a shared connection. Supported:
//   - PTY allocation for interactive commands
//   - Signal propagation (Interrupt, Kill)
//   - Binary lookup on the remote PATH, so a missing CLI is a start failure
//
// Host keys are checked against ~/.ssh/known_hosts unless told otherwise.
//
// Usage:
//
//	cfg, err := ssh.FromSSHConfig("build-01", "") // as `ssh build-01` would resolve it
//	env, err := ssh.New(ssh.WithConfig(cfg))
//
//	env, err := ssh.New(
//		ssh.WithHost("10.0.4.17"),
//		ssh.WithUser("ci"),
//		ssh.WithKeyPath("/etc/ci/deploy_key"),
//		ssh.WithKnownHosts("/etc/ci/known_hosts"),
//	)
package ssh
