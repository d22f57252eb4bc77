// Package docker provides a cexec.Environment that runs commands inside an
// existing container through the Docker Engine API.
//
// This is how a tools container carrying the docker or podman CLI is driven:
// the Executor's binary runs via "docker exec" semantics without a docker CLI
// on the calling host.
//
// Key features include:
//   - Stream demultiplexing for non-TTY commands (stdout vs stderr)
//   - Context-aware cancellation by closing the hijacked connection
//   - Binary lookup inside the container, so a missing CLI is a start failure
//
// Usage:
//
//	env, err := docker.New(docker.WithContainerID("tools"))
package docker
