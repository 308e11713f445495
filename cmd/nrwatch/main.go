package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timgluz/nrwatch/command"
)

type globalFlags struct {
	configPath string
	dotEnvPath string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "nrwatch",
		Short:        "New Relic apdex and error rate alerting",
		Long:         `nrwatch polls the New Relic REST API and sends alerts when an application's apdex score or error rate crosses a configured threshold.`,
		SilenceUsage: true,
	}

	fs := root.PersistentFlags()
	fs.StringVarP(&flags.configPath, "config", "c", "", "path to a JSON or YAML configuration file")
	fs.StringVar(&flags.dotEnvPath, "dotenv", "", "path to .env file (overrides config file setting)")
	fs.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCommand(flags),
		newCheckCommand(flags),
		newListCommand(flags),
		newEnableCommand(flags),
		newDisableCommand(flags),
		newDashboardCommand(),
	)
	root.SetHelpCommand(newHelpCommand())

	return root
}

// newHelpCommand prints the command topic for "help newrelic" and falls back
// to the usual cobra help otherwise.
func newHelpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "help [topic]",
		Short: "Help about any command or topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == command.NewRelicHelp.Name {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), command.NewRelicHelp.String())
				return err
			}

			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				return cmd.Root().Help()
			}
			return target.Help()
		},
	}
}
