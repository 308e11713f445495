package metric

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry hands out namespaced collectors and keeps them in maps so that
// every component asking for the same name shares one collector.
type Registry struct {
	namespace string
	mu        sync.Mutex

	registry *prometheus.Registry

	counterVecs   map[string]*prometheus.CounterVec
	gaugeVecs     map[string]*prometheus.GaugeVec
	histograms    map[string]prometheus.Histogram
	histogramVecs map[string]*prometheus.HistogramVec

	logger *slog.Logger
}

// NewRegistry creates a registry backed by its own prometheus.Registry.
func NewRegistry(namespace string, logger *slog.Logger) *Registry {
	return NewRegistryWith(namespace, prometheus.NewRegistry(), logger)
}

func NewRegistryWith(namespace string, registry *prometheus.Registry, logger *slog.Logger) *Registry {
	return &Registry{
		namespace:     namespace,
		registry:      registry,
		counterVecs:   make(map[string]*prometheus.CounterVec),
		gaugeVecs:     make(map[string]*prometheus.GaugeVec),
		histograms:    make(map[string]prometheus.Histogram),
		histogramVecs: make(map[string]*prometheus.HistogramVec),
		logger:        logger,
	}
}

// RegisterRuntimeCollectors adds the Go runtime and process collectors.
func (r *Registry) RegisterRuntimeCollectors() {
	r.register(collectors.NewGoCollector())
	r.register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Gatherer exposes the underlying registry for promhttp.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) GetOrCreateCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if counterVec, exists := r.counterVecs[name]; exists {
		return counterVec
	}

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
	}, labels)

	r.register(counterVec)
	r.counterVecs[name] = counterVec
	return counterVec
}

func (r *Registry) GetOrCreateGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gaugeVec, exists := r.gaugeVecs[name]; exists {
		return gaugeVec
	}

	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
	}, labels)

	r.register(gaugeVec)
	r.gaugeVecs[name] = gaugeVec
	return gaugeVec
}

// GetOrCreateHistogram gets or creates a histogram metric
func (r *Registry) GetOrCreateHistogram(name, help string, buckets []float64) prometheus.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if histogram, exists := r.histograms[name]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})

	r.register(histogram)
	r.histograms[name] = histogram
	return histogram
}

func (r *Registry) GetOrCreateHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if histogramVec, exists := r.histogramVecs[name]; exists {
		return histogramVec
	}

	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)

	r.register(histogramVec)
	r.histogramVecs[name] = histogramVec
	return histogramVec
}

func (r *Registry) register(collector prometheus.Collector) {
	if err := r.registry.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			// replace the stale collector so the new instance is the one gathered
			r.registry.Unregister(are.ExistingCollector)
			r.registry.MustRegister(collector)
			return
		}

		r.logger.Error("Failed to register metric", "error", err)
	}
}
