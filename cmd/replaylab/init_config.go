package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/replaylab/internal/app"
)

type initConfigFlags struct {
	output string
	force  bool
}

func newInitConfigCmd() *cobra.Command {
	flags := &initConfigFlags{}

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default experiment config",
		Long: `Write every experiment setting with its default value. A path ending in
.lua produces a Lua config, anything else YAML.`,
		Example: `  replaylab init-config --output experiment.yaml
  replaylab init-config --output experiment.lua`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.InitConfig(flags.output, flags.force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.output, "output", "replaylab.yaml", "Config file to create")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite an existing file")

	return cmd
}
