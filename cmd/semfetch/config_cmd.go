package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semfetch/config"
)

func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and check configuration",
	}
	cmd.AddCommand(configShowCmd(opts))
	cmd.AddCommand(configPathCmd(opts))
	cmd.AddCommand(configValidateCmd(opts))
	return cmd
}

func configShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(setupLogger(opts.logLevel)).Load(opts.configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func configPathCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config files in load order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			files := config.NewLoader(setupLogger(opts.logLevel)).Files(opts.configPath)
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(defaults only)")
				return
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
		},
	}
}

func configValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.NewLoader(setupLogger(opts.logLevel)).Load(opts.configPath); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration OK")
			return nil
		},
	}
}
