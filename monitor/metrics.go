package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/timgluz/nrwatch/metric"
)

const (
	OutcomeDisabled      = "disabled"
	OutcomeOK            = "ok"
	OutcomeProviderError = "provider_error"
	OutcomeRegistryError = "registry_error"
	OutcomeSinkError     = "sink_error"
)

type pollMetrics struct {
	polls    *prometheus.CounterVec
	alerts   *prometheus.CounterVec
	duration prometheus.Histogram

	apdex     *prometheus.GaugeVec
	errorRate *prometheus.GaugeVec
}

func newPollMetrics(registry *metric.Registry) *pollMetrics {
	return &pollMetrics{
		polls: registry.GetOrCreateCounterVec(
			"polls_total",
			"Application polls by outcome",
			[]string{"outcome"},
		),
		alerts: registry.GetOrCreateCounterVec(
			"alerts_total",
			"Alerts delivered by kind",
			[]string{"kind"},
		),
		duration: registry.GetOrCreateHistogram(
			"poll_duration_seconds",
			"Duration of a single application poll",
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		),
		apdex: registry.GetOrCreateGaugeVec(
			"apdex_score",
			"Last observed apdex score per application",
			[]string{"app"},
		),
		errorRate: registry.GetOrCreateGaugeVec(
			"error_rate",
			"Last observed error rate per application",
			[]string{"app"},
		),
	}
}

func (m *pollMetrics) outcome(outcome string) {
	m.polls.WithLabelValues(outcome).Inc()
}
