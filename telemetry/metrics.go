package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes simulation counters to Prometheus on a private registry,
// so several games (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	agents        prometheus.Gauge
	faults        prometheus.Counter
	clampedForces prometheus.Counter
}

// NewMetrics creates and registers the flock metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flock",
			Name:      "ticks_total",
			Help:      "Simulation ticks completed.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flock",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent in one simulation tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		agents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flock",
			Name:      "agents",
			Help:      "Live agents after the last tick.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flock",
			Name:      "numeric_faults_total",
			Help:      "Agents that produced a non-finite position or velocity.",
		}),
		clampedForces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flock",
			Name:      "clamped_forces_total",
			Help:      "Steering evaluations whose force exceeded the limit.",
		}),
	}
	m.registry.MustRegister(m.ticks, m.tickDuration, m.agents, m.faults, m.clampedForces)
	return m
}

// ObserveTick records one completed tick.
func (m *Metrics) ObserveTick(d time.Duration, agents, clamped, faults int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.agents.Set(float64(agents))
	m.clampedForces.Add(float64(clamped))
	m.faults.Add(float64(faults))
}

// Registry returns the registry holding the flock metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
