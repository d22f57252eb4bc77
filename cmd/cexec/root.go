package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ruffel/cexec"
	"github.com/ruffel/cexec/internal/config"
	"github.com/spf13/cobra"
)

type (
	// app is the state shared by every subcommand of one invocation.
	app struct {
		cfgFile string
		flags   flagValues

		cfg     *config.Config
		cfgPath string
		logger  *log.Logger

		// newEnv creates the environment the CLI binary runs in. Tests swap it.
		newEnv func() (cexec.Environment, error)
	}

	flagValues struct {
		dryRun     bool
		verbose    bool
		engine     string
		binary     string
		timeout    time.Duration
		retries    int
		backoff    string
		acceptExit []int
		target     targetFlags
	}
)

func newRootCommand() *cobra.Command {
	a := &app{}
	a.newEnv = func() (cexec.Environment, error) { return a.flags.target.open() }

	return buildRootCommand(a)
}

func buildRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cexec",
		Short: "Run container CLI commands with dry-run, retries and streaming",
		Long: titleStyle.Render("cexec") + infoStyle.Render(" - a docker/podman command executor") + `

Every invocation is recorded in an execution log. With --dry-run nothing is
spawned and the log is printed as a preview instead.

Settings come from cexec.toml ($XDG_CONFIG_HOME/cexec or the working
directory), then CEXEC_* environment variables, then flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/cexec/cexec.toml)")
	pf.BoolVar(&a.flags.dryRun, "dry-run", false, "record and preview invocations without running them")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log every attempt")
	pf.StringVar(&a.flags.engine, "engine", "", "container engine: docker or podman")
	pf.StringVar(&a.flags.binary, "binary", "", "path of the CLI binary, skipping engine lookup")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "per-attempt timeout (0 disables)")
	pf.IntVar(&a.flags.retries, "retries", 0, "retries after the first failed attempt")
	pf.StringVar(&a.flags.backoff, "backoff", "", "wait between attempts, e.g. fixed:1s, linear:1s,500ms, exp:100ms,5s,2")
	pf.IntSliceVar(&a.flags.acceptExit, "accept-exit", nil, "non-zero exit codes to treat as success")
	pf.StringVar(&a.flags.target.container, "container", "", "run the CLI inside this container through the Docker Engine API")
	pf.StringVar(&a.flags.target.sshHost, "ssh-host", "", "run the CLI on this host (an alias from ~/.ssh/config)")

	root.AddCommand(newRunCommand(a))
	root.AddCommand(newBatchCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(newCheckCommand(a))

	return root
}

// init loads the configuration, applies explicitly set flags on top of it and
// builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, path, err := config.Load(config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("dry-run") {
		cfg.DryRun = a.flags.dryRun
	}

	if flags.Changed("verbose") {
		cfg.Verbose = a.flags.verbose
	}

	if flags.Changed("engine") {
		cfg.Engine = a.flags.engine
	}

	if flags.Changed("binary") {
		cfg.Binary = a.flags.binary
	}

	if flags.Changed("timeout") {
		cfg.Timeout = a.flags.timeout
	}

	if flags.Changed("retries") {
		cfg.Retry.MaxAttempts = a.flags.retries + 1
	}

	if flags.Changed("backoff") {
		cfg.Retry.Backoff = a.flags.backoff
	}

	if f := flags.Lookup("parallel"); f != nil && f.Changed {
		cfg.Parallel, _ = flags.GetInt("parallel")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if err := a.flags.target.validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.cfgPath = path
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	if path != "" {
		a.logger.Debug("loaded configuration", "path", path)
	}

	return nil
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          "cexec",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	if verbose {
		l.SetLevel(log.DebugLevel)
	}

	return l
}

// executor builds an Executor from the effective configuration.
func (a *app) executor(env cexec.Environment, shared *cexec.ExecutionLog) (*cexec.Executor, error) {
	engine, err := cexec.ParseEngineType(a.cfg.Engine)
	if err != nil {
		return nil, err
	}

	opts := []cexec.Option{
		cexec.WithEngine(engine),
		cexec.WithDryRun(a.cfg.DryRun),
		cexec.WithVerbose(a.cfg.Verbose),
		cexec.WithTimeout(a.cfg.Timeout),
		cexec.WithLogger(a.logger),
		cexec.WithLog(shared),
	}

	if a.cfg.Binary != "" {
		opts = append(opts, cexec.WithBinary(a.cfg.Binary))
	}

	if len(a.flags.acceptExit) > 0 {
		opts = append(opts, cexec.WithAcceptExitCodes(a.flags.acceptExit...))
	}

	if a.cfg.Retry.MaxAttempts > 1 {
		backoff, err := cexec.ParseBackoff(a.cfg.Retry.Backoff)
		if err != nil {
			return nil, err
		}

		policy := cexec.NewRetryPolicy().
			WithMaxAttempts(a.cfg.Retry.MaxAttempts).
			WithBackoff(backoff).
			WithObserver(cexec.RetryObserverFunc(func(attempt int, err error) {
				a.logger.Warn("attempt failed, retrying", "attempt", attempt, "err", err)
			}))

		opts = append(opts, cexec.WithRetryPolicy(policy))
	}

	return cexec.NewExecutor(env, opts...), nil
}
