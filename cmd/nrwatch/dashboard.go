package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timgluz/nrwatch/dashboard"
)

func newDashboardCommand() *cobra.Command {
	var configPath string
	var outputPath string
	var namespace string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Generate a Grafana dashboard for the exported metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg dashboard.Config
			if configPath != "" {
				loaded, err := dashboard.LoadConfig(configPath)
				if err != nil {
					return fmt.Errorf("load dashboard config: %w", err)
				}
				cfg = loaded
			}

			if namespace != "" {
				cfg.Namespace = namespace
			}

			content, err := dashboard.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("build dashboard: %w", err)
			}

			if outputPath == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(content))
				return err
			}

			return os.WriteFile(outputPath, content, 0o644) // #nosec G306 -- dashboards are not secret
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&configPath, "dashboard-config", "", "path to a dashboard chart configuration (JSON)")
	fs.StringVarP(&outputPath, "output", "o", "", "write the dashboard to this file instead of stdout")
	fs.StringVar(&namespace, "namespace", metricNamespace, "metric namespace used in queries")

	return cmd
}
