package cli

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return NewRoot().Execute()
}

type rootFlags struct {
	configPath string
	verbose    bool
}

func NewRoot() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "crayon",
		Short:         "Score agent purposes and chain them into a finished agent prompt",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a yaml config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug output")

	root.AddCommand(
		ServeCmd(flags),
		EvaluateCmd(),
		GenerateCmd(flags),
	)
	return root
}
