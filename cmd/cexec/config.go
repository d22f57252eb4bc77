package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect cexec configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.Encode()
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfgPath == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render("no config file found, using defaults"))

				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.cfgPath)

			return err
		},
	})

	return cfgCmd
}
