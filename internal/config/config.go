// Package config loads the cexec CLI settings from defaults, an optional
// cexec.toml file and CEXEC_* environment variables, in increasing order of
// precedence. Command-line flags are applied on top by the CLI itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/internal/issue"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "cexec"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "cexec"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix prefixes every environment override, e.g. CEXEC_RETRY_BACKOFF.
	EnvPrefix = "CEXEC"
)

type (
	// Config is the effective CLI configuration.
	Config struct {
		Engine   string        `mapstructure:"engine"`
		Binary   string        `mapstructure:"binary"`
		DryRun   bool          `mapstructure:"dry_run"`
		Verbose  bool          `mapstructure:"verbose"`
		Timeout  time.Duration `mapstructure:"timeout"`
		Retry    RetryConfig   `mapstructure:"retry"`
		Parallel int           `mapstructure:"parallel"`
	}

	// RetryConfig holds the retry policy settings.
	RetryConfig struct {
		MaxAttempts int    `mapstructure:"max_attempts"`
		Backoff     string `mapstructure:"backoff"`
	}

	// LoadOptions overrides where Load looks for the config file.
	LoadOptions struct {
		// ConfigFilePath is used exclusively when set; it must exist.
		ConfigFilePath string
		// ConfigDirPath replaces the default config directory.
		ConfigDirPath string
	}

	// fileView is the TOML shape of Config, with durations as strings.
	fileView struct {
		Engine   string        `toml:"engine"`
		Binary   string        `toml:"binary,omitempty"`
		DryRun   bool          `toml:"dry_run"`
		Verbose  bool          `toml:"verbose"`
		Timeout  string        `toml:"timeout"`
		Parallel int           `toml:"parallel"`
		Retry    retryFileView `toml:"retry"`
	}

	retryFileView struct {
		MaxAttempts int    `toml:"max_attempts"`
		Backoff     string `toml:"backoff"`
	}
)

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Engine: string(cexec.EngineDocker),
		Retry: RetryConfig{
			MaxAttempts: 1,
			Backoff:     "fixed:1s",
		},
		Parallel: 4,
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/cexec, defaulting to ~/.config/cexec.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}

		dir = filepath.Join(home, ".config")
	}

	return filepath.Join(dir, AppName), nil
}

// Load resolves the configuration and returns it with the path of the file
// it was read from ("" when only defaults and the environment applied).
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("binary", defaults.Binary)
	v.SetDefault("dry_run", defaults.DryRun)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	v.SetDefault("retry.backoff", defaults.Retry.Backoff)
	v.SetDefault("parallel", defaults.Parallel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType(ConfigFileExt)

	if opts.ConfigFilePath != "" {
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'cexec config show' to see the default configuration").
				Wrap(err).
				BuildError()
		}

		v.SetConfigFile(opts.ConfigFilePath)
	} else {
		dir := opts.ConfigDirPath
		if dir == "" {
			var err error
			if dir, err = ConfigDir(); err != nil {
				return nil, "", err
			}
		}

		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
	}

	resolved := ""

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(v.ConfigFileUsed()).
				WithSuggestion("Check that the file contains valid TOML").
				Wrap(err).
				BuildError()
		}
	} else {
		resolved = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolved).
			WithSuggestion("Run 'cexec config show' to see the effective values").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolved, nil
}

// Validate checks the values the Executor would reject or misuse.
func (c *Config) Validate() error {
	var errs []error

	if _, err := cexec.ParseEngineType(c.Engine); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: must not be negative, got %s", c.Timeout))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts: must be at least 1, got %d", c.Retry.MaxAttempts))
	}

	if _, err := cexec.ParseBackoff(c.Retry.Backoff); err != nil {
		errs = append(errs, fmt.Errorf("retry.backoff: %w", err))
	}

	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel: must be at least 1, got %d", c.Parallel))
	}

	return errors.Join(errs...)
}

// Encode renders c as a cexec.toml document.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(fileView{
		Engine:   c.Engine,
		Binary:   c.Binary,
		DryRun:   c.DryRun,
		Verbose:  c.Verbose,
		Timeout:  c.Timeout.String(),
		Parallel: c.Parallel,
		Retry: retryFileView{
			MaxAttempts: c.Retry.MaxAttempts,
			Backoff:     c.Retry.Backoff,
		},
	})
}
