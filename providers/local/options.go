package local

import (
	"time"

	"github.com/ruffel/cexec"
)

// Config holds configuration for the local environment.
type Config struct {
	targetOS  cexec.TargetOS
	waitDelay time.Duration
}

// Option defines a functional option for the local provider.
type Option func(*Config)

// WithWaitDelay bounds how long Wait keeps reading output after the child has
// exited (or been killed) while something else still holds its pipes open.
// Zero waits indefinitely.
func WithWaitDelay(d time.Duration) Option {
	return func(c *Config) {
		c.waitDelay = d
	}
}
