package ssh

import (
	"time"

	"github.com/ruffel/cexec"
)

// Option defines a functional option for the SSH provider.
type Option func(*Config)

// WithConfig returns an Option that sets multiple fields from a Config struct.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithHost sets the target hostname.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithUser sets the SSH user.
func WithUser(user string) Option {
	return func(c *Config) {
		c.User = user
	}
}

// WithPort sets the SSH port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithPassword sets the SSH password.
func WithPassword(password string) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithKeyPath adds a private key file. It may be given several times.
func WithKeyPath(path string) Option {
	return func(c *Config) {
		c.KeyPaths = append(c.KeyPaths, path)
	}
}

// WithKnownHosts verifies host keys against the given known_hosts files
// instead of ~/.ssh/known_hosts.
func WithKnownHosts(files ...string) Option {
	return func(c *Config) {
		c.KnownHosts = append(c.KnownHosts, files...)
	}
}

// WithInsecureSkipVerify enables/disables strict host key checking.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Config) {
		c.InsecureSkipVerify = skip
	}
}

// WithAgent enables authentication through SSH_AUTH_SOCK.
func WithAgent(use bool) Option {
	return func(c *Config) {
		c.UseAgent = use
	}
}

// WithTimeout sets the connection timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithOS sets the remote operating system.
func WithOS(os cexec.TargetOS) Option {
	return func(c *Config) {
		c.OS = os
	}
}
