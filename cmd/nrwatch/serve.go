package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/timgluz/nrwatch/bus"
	"github.com/timgluz/nrwatch/command"
	"github.com/timgluz/nrwatch/logging"
	"github.com/timgluz/nrwatch/monitor"
	"github.com/timgluz/nrwatch/scheduler"
	"github.com/timgluz/nrwatch/server"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poller, the admin server and the command responder",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, flags)
		},
	}
}

func serve(ctx context.Context, flags *globalFlags) error {
	a, err := loadApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	a.metrics.RegisterRuntimeCollectors()

	if err := a.provider.Ping(ctx); err != nil {
		logger.Error("Failed to ping New Relic API", "error", err)
		return err
	}

	if err := a.connectNATS(); err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		return err
	}

	sched := scheduler.New[monitor.PollJobData](a.config.Scheduler, a.metrics, logging.Component(logger, "scheduler"))
	sched.Define(monitor.JobKind, a.monitor().HandleRun)
	sched.Start()
	defer sched.Stop()

	result, err := monitor.Bootstrap(ctx, a.source, a.registry, sched, a.config.PollInterval(), logging.Component(logger, "monitor"))
	if err != nil {
		logger.Error("Failed to bootstrap monitoring", "error", err)
		return fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("Monitoring started", "applications", len(result.Entities), "seeded", result.Seeded)

	dispatcher := command.NewAdminDispatcher(a.admin(), logging.Component(logger, "command"))

	if a.nats != nil {
		responder := bus.NewCommandResponder(dispatcher, a.config.Scheduler.Timeout(), logging.Component(logger, "bus"))
		if err := responder.Subscribe(a.nats, a.config.NATS.CommandSubject); err != nil {
			return err
		}
		defer func() {
			if err := responder.Unsubscribe(); err != nil {
				logger.Warn("Failed to unsubscribe command responder", "error", err)
			}
		}()
	}

	admin := server.New(a.config.Admin, dispatcher, sched, a.metrics.Gatherer(), logging.Component(logger, "server"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return admin.ListenAndServe(gctx)
	})

	err = g.Wait()
	logger.Info("Shutting down")
	return err
}
