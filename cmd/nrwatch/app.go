package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/timgluz/nrwatch/alert"
	"github.com/timgluz/nrwatch/bus"
	"github.com/timgluz/nrwatch/command"
	"github.com/timgluz/nrwatch/config"
	"github.com/timgluz/nrwatch/httpclient"
	"github.com/timgluz/nrwatch/logging"
	"github.com/timgluz/nrwatch/metric"
	"github.com/timgluz/nrwatch/monitor"
	"github.com/timgluz/nrwatch/newrelic"
	"github.com/timgluz/nrwatch/ntfy"
	"github.com/timgluz/nrwatch/registry"
)

const metricNamespace = "nrwatch"

// app holds the components shared by every subcommand.
type app struct {
	config  config.Config
	logger  *slog.Logger
	metrics *metric.Registry

	provider *newrelic.HTTPProvider
	source   monitor.Source
	registry *registry.Registry

	nats *nats.Conn
}

func loadApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath, flags.dotEnvPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := cfg.CheckCredentials(); err != nil {
		return nil, err
	}

	metrics := metric.NewRegistry(metricNamespace, logger)

	client := newrelic.NewInstrumentedClient(cfg.NewRelic, metrics)
	provider := newrelic.NewHTTPProvider(
		cfg.NewRelic,
		client,
		newrelic.NewAPIKeyEnvProvider(cfg.NewRelic.APIKeyEnv),
		logging.Component(logger, "newrelic"),
	)

	store, err := registry.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		provider: provider,
		source:   monitor.NewNewRelicSource(provider),
		registry: registry.New(store, logging.Component(logger, "registry")),
	}, nil
}

// connectNATS opens the shared bus connection when NATS is configured.
func (a *app) connectNATS() error {
	if !a.config.NATS.Enabled() {
		return nil
	}

	conn, err := bus.Connect(a.config.NATS, a.logger)
	if err != nil {
		return err
	}

	a.nats = conn
	return nil
}

// sink fans alerts out to the log and every configured destination.
func (a *app) sink() alert.Sink {
	sinks := []alert.Sink{alert.LogSink(logging.Component(a.logger, "alert"))}

	if a.config.Ntfy.Enabled() {
		client := httpclient.NewHTTPClientWithOptions(httpclient.WithTimeout(a.config.NewRelic.Timeout()))
		sinks = append(sinks, ntfy.NewSinkFromConfig(a.config.Ntfy, client, logging.Component(a.logger, "ntfy")))
	}

	if a.nats != nil {
		sinks = append(sinks, bus.NewAlertPublisher(a.nats, a.config.NATS.AlertSubject, logging.Component(a.logger, "bus")))
	}

	return alert.MultiSink(sinks...)
}

func (a *app) monitor() *monitor.Monitor {
	return monitor.New(a.source, a.registry, a.config.Thresholds, a.sink(), a.metrics, logging.Component(a.logger, "monitor"))
}

func (a *app) admin() *command.Admin {
	return command.NewAdmin(a.source, a.registry, logging.Component(a.logger, "command"))
}

func (a *app) Close() {
	bus.Close(a.nats)

	if err := a.registry.Close(); err != nil {
		a.logger.Warn("Failed to close store", "error", err)
	}
}
