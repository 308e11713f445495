package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timgluz/nrwatch/command"
)

type adminFunc func(ctx context.Context, admin *command.Admin, args []string) (string, error)

func newListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List New Relic applications and their monitoring state",
		Args:  cobra.NoArgs,
		RunE: runAdmin(flags, func(ctx context.Context, admin *command.Admin, args []string) (string, error) {
			return admin.List(ctx)
		}),
	}
}

func newEnableCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <index|name>",
		Short: "Enable monitoring of an application",
		Args:  cobra.MinimumNArgs(1),
		RunE: runAdmin(flags, func(ctx context.Context, admin *command.Admin, args []string) (string, error) {
			return admin.Enable(ctx, command.ParseSelector(strings.Join(args, " ")))
		}),
	}
}

func newDisableCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <index|name>",
		Short: "Disable monitoring of an application",
		Args:  cobra.MinimumNArgs(1),
		RunE: runAdmin(flags, func(ctx context.Context, admin *command.Admin, args []string) (string, error) {
			return admin.Disable(ctx, command.ParseSelector(strings.Join(args, " ")))
		}),
	}
}

func runAdmin(flags *globalFlags, fn adminFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp(ctx, flags)
		if err != nil {
			return err
		}
		defer a.Close()

		reply, err := fn(ctx, a.admin(), args)
		if reply != "" {
			fmt.Fprintln(cmd.OutOrStdout(), reply)
		}
		return err
	}
}
