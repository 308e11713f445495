package main

import (
	"github.com/spf13/cobra"
)

func newCheckCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Poll every enabled application once and deliver alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := loadApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.connectNATS(); err != nil {
				return err
			}

			if err := a.monitor().CheckAll(ctx); err != nil {
				a.logger.Error("Check finished with failures", "error", err)
				return err
			}

			a.logger.Info("Check finished")
			return nil
		},
	}
}
