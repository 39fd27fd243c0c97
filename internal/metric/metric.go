// Package metric gathers and exposes Prometheus metrics about key
// resolution.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/keysync/internal/domain/model"
)

// Metrics is a type that gathers resync outcomes and exposes them in the
// Prometheus text format.
type Metrics struct {
	registry *prometheus.Registry

	resyncRuns     prometheus.Counter
	resyncFailures prometheus.Counter
	resyncDuration prometheus.Histogram

	credentials prometheus.Gauge
	keys        prometheus.Gauge
	resolved    prometheus.Gauge
	lost        prometheus.Gauge
	repaired    prometheus.Counter
}

// New returns a new Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resyncRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keysync",
			Subsystem: "resync",
			Name:      "runs_total",
			Help:      "Number of resync passes started.",
		}),
		resyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keysync",
			Subsystem: "resync",
			Name:      "failures_total",
			Help:      "Number of resync passes aborted by an error.",
		}),
		resyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "keysync",
			Subsystem: "resync",
			Name:      "duration_seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
			Help:      "Histogram of resync pass durations from 10ms to 2m.",
		}),
		credentials: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "keysync",
			Name:      "credentials",
			Help:      "Number of credentials examined by the last resync.",
		}),
		keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "keysync",
			Name:      "keys",
			Help:      "Number of encryption keys known to the last resync.",
		}),
		resolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "keysync",
			Subsystem: "credentials",
			Name:      "resolved",
			Help:      "Credentials a known key decrypts, as of the last resync.",
		}),
		lost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "keysync",
			Subsystem: "credentials",
			Name:      "lost",
			Help:      "Credentials no known key decrypts, as of the last resync.",
		}),
		repaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keysync",
			Subsystem: "associations",
			Name:      "repaired_total",
			Help:      "Credentials whose key association rows were rewritten by resync.",
		}),
	}

	m.registry.MustRegister(
		m.resyncRuns,
		m.resyncFailures,
		m.resyncDuration,
		m.credentials,
		m.keys,
		m.resolved,
		m.lost,
		m.repaired,
	)
	return m
}

// ObserveResync records the outcome of one resync pass. Gauges are only
// updated by passes that completed.
func (m *Metrics) ObserveResync(report model.ResyncReport, elapsed time.Duration, err error) {
	m.resyncRuns.Inc()
	m.resyncDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.resyncFailures.Inc()
		return
	}

	m.credentials.Set(float64(report.Credentials))
	m.keys.Set(float64(report.Keys))
	m.resolved.Set(float64(report.Resolved))
	m.lost.Set(float64(report.Lost))
	m.repaired.Add(float64(report.Repaired))
}

// Handler returns an http.Handler serving the gathered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
