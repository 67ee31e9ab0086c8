package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/replaylab/internal/app"
)

type validateConfigFlags struct {
	configPath string
}

func newValidateConfigCmd() *cobra.Command {
	flags := &validateConfigFlags{}

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check an experiment config without running it",
		Example: `  replaylab validate-config --config experiment.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.configPath == "" && len(args) > 0 {
				flags.configPath = args[0]
			}
			if flags.configPath == "" {
				return missingFlagError(cmd, "--config")
			}
			return app.ValidateConfig(flags.configPath, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Config file to validate (required)")

	return cmd
}
