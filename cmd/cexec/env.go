package main

import (
	"errors"
	"fmt"

	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/internal/issue"
	"github.com/ruffel/cexec/providers/docker"
	"github.com/ruffel/cexec/providers/local"
	"github.com/ruffel/cexec/providers/ssh"
)

// targetFlags select where the container CLI runs. At most one may be set;
// with neither, it runs on this machine.
type targetFlags struct {
	container string
	sshHost   string
}

func (f targetFlags) validate() error {
	if f.container != "" && f.sshHost != "" {
		return errors.New("--container and --ssh-host are mutually exclusive")
	}

	return nil
}

// name is the label of the selected environment in logs and reports.
func (f targetFlags) name() string {
	switch {
	case f.container != "":
		return "docker"
	case f.sshHost != "":
		return "ssh"
	default:
		return "local"
	}
}

// open connects to the selected environment.
func (f targetFlags) open() (cexec.Environment, error) {
	switch {
	case f.container != "":
		env, err := docker.New(docker.WithContainerID(f.container))
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("connect to container").
				WithResource(f.container).
				WithSuggestion("Check that the Docker daemon is reachable (DOCKER_HOST)").
				WithSuggestion("Check that the container is running: docker ps").
				Wrap(err).
				BuildError()
		}

		return env, nil
	case f.sshHost != "":
		env, err := openSSH(f.sshHost)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("connect over ssh").
				WithResource(f.sshHost).
				WithSuggestion("Add the host to ~/.ssh/config with HostName, User and IdentityFile").
				WithSuggestion("Make sure the host key is in ~/.ssh/known_hosts").
				Wrap(err).
				BuildError()
		}

		return env, nil
	default:
		env, err := local.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create local environment: %w", err)
		}

		return env, nil
	}
}

func openSSH(alias string) (*ssh.Environment, error) {
	cfg, err := ssh.FromSSHConfig(alias, "")
	if err != nil {
		return nil, err
	}

	return ssh.New(ssh.WithConfig(cfg))
}
