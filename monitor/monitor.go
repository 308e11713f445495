package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/timgluz/nrwatch/alert"
	"github.com/timgluz/nrwatch/metric"
	"github.com/timgluz/nrwatch/registry"
	"github.com/timgluz/nrwatch/scheduler"
)

const JobKind = "monitor-newrelic"

// PollJobData is the payload bound to one poll job.
type PollJobData struct {
	Entity Entity `json:"entity"`
}

// Enablement is the part of the registry the monitor depends on.
type Enablement interface {
	IsEnabled(ctx context.Context, id string) (bool, error)
	ListEnabled(ctx context.Context) ([]registry.Record, error)
	Enable(ctx context.Context, record registry.Record) error
}

type Monitor struct {
	source     Source
	enablement Enablement
	thresholds alert.Thresholds
	sink       alert.Sink

	metrics *pollMetrics
	logger  *slog.Logger
}

func New(source Source, enablement Enablement, thresholds alert.Thresholds, sink alert.Sink, registry *metric.Registry, logger *slog.Logger) *Monitor {
	return &Monitor{
		source:     source,
		enablement: enablement,
		thresholds: thresholds,
		sink:       sink,
		metrics:    newPollMetrics(registry),
		logger:     logger,
	}
}

// HandleRun is the scheduler handler for JobKind.
func (m *Monitor) HandleRun(ctx context.Context, run scheduler.Run[PollJobData]) error {
	return m.poll(ctx, run.ID, run.Data.Entity)
}

// Poll checks one entity once: it is a no-op for entities without an
// enablement record, otherwise it fetches apdex then error rate and delivers
// an alert for every breached threshold.
func (m *Monitor) Poll(ctx context.Context, entity Entity) error {
	return m.poll(ctx, uuid.NewString(), entity)
}

func (m *Monitor) poll(ctx context.Context, runID string, entity Entity) error {
	logger := m.logger.With("runID", runID, "appID", entity.ID, "appName", entity.Name)

	start := time.Now()
	defer func() {
		m.metrics.duration.Observe(time.Since(start).Seconds())
	}()

	enabled, err := m.enablement.IsEnabled(ctx, entity.ID)
	if err != nil {
		m.metrics.outcome(OutcomeRegistryError)
		return err
	}
	if !enabled {
		logger.Debug("Skipping disabled application")
		m.metrics.outcome(OutcomeDisabled)
		return nil
	}

	apdex, err := m.source.Apdex(ctx, entity.ID)
	if err != nil {
		m.metrics.outcome(OutcomeProviderError)
		return &ProviderError{Op: "apdex", EntityID: entity.ID, Err: err}
	}
	m.metrics.apdex.WithLabelValues(entity.Name).Set(apdex)

	// the error rate check runs even when the apdex alert could not be delivered
	var apdexErr error
	if m.thresholds.Breached(alert.KindApdex, apdex) {
		apdexErr = m.deliver(ctx, logger, alert.KindApdex, entity, apdex, m.thresholds.Apdex)
	}

	rate, err := m.source.ErrorRate(ctx, entity.ID)
	if err != nil {
		m.metrics.outcome(OutcomeProviderError)
		return errors.Join(apdexErr, &ProviderError{Op: "error_rate", EntityID: entity.ID, Err: err})
	}
	m.metrics.errorRate.WithLabelValues(entity.Name).Set(rate)

	var rateErr error
	if m.thresholds.Breached(alert.KindErrorRate, rate) {
		rateErr = m.deliver(ctx, logger, alert.KindErrorRate, entity, rate, m.thresholds.Error)
	}

	if err := errors.Join(apdexErr, rateErr); err != nil {
		return err
	}

	logger.Debug("Polled application", "apdex", apdex, "errorRate", rate)
	m.metrics.outcome(OutcomeOK)
	return nil
}

func (m *Monitor) deliver(ctx context.Context, logger *slog.Logger, kind alert.Kind, entity Entity, value float64, rule alert.ComparisonRule) error {
	msg := alert.NewMessage(kind, entity.ID, entity.Name, value, rule)
	logger.Info("Threshold breached", "kind", kind, "value", value, "rule", rule.String())

	if err := m.sink.Deliver(ctx, msg); err != nil {
		logger.Error("Failed to deliver alert", "kind", kind, "error", err)
		m.metrics.outcome(OutcomeSinkError)
		return err
	}

	m.metrics.alerts.WithLabelValues(string(kind)).Inc()
	return nil
}

// CheckAll polls every entity of the source once and returns the joined
// poll failures.
func (m *Monitor) CheckAll(ctx context.Context) error {
	entities, err := m.source.ListEntities(ctx)
	if err != nil {
		return &ProviderError{Op: "list", Err: err}
	}

	var errs []error
	for _, entity := range entities {
		if err := m.Poll(ctx, entity); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
