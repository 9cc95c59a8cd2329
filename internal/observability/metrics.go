// Package observability provides Prometheus metrics for the ledger engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name when none is given.
const DefaultNamespace = "ao20"

// Metrics holds all Prometheus metrics for the ledger process.
// It satisfies engine.Recorder.
type Metrics struct {
	// Dispatch metrics
	MessagesTotal  *prometheus.CounterVec
	NoticesTotal   *prometheus.CounterVec
	HandleDuration *prometheus.HistogramVec

	// Engine metrics
	QueueDepth    prometheus.Gauge
	JournalErrors prometheus.Counter

	// Ledger metrics
	TotalSupply prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates a Metrics instance registered with the default
// Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, prometheus.DefaultGatherer, namespace)
}

// NewMetricsWith registers the metrics with reg and serves them from g.
// Tests pass a fresh prometheus.NewRegistry() for both.
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "messages_total",
			Help:      "Total number of messages handled by action and outcome",
		}, []string{"action", "outcome"}),
		NoticesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "notices_total",
			Help:      "Total number of outbound notices by action",
		}, []string{"action"}),
		HandleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "handle_duration_seconds",
			Help:      "Time spent applying one message to the ledger",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Messages waiting for the engine",
		}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "journal_errors_total",
			Help:      "Total number of failed journal writes",
		}),

		TotalSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_supply",
			Help:      "Total supply in whole tokens (float approximation, dashboards only)",
		}),

		gatherer: g,
	}
}

// RecordMessage counts a handled message and observes its latency.
func (m *Metrics) RecordMessage(action, outcome string, elapsed time.Duration) {
	m.MessagesTotal.WithLabelValues(action, outcome).Inc()
	m.HandleDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// RecordNotice counts one outbound notice.
func (m *Metrics) RecordNotice(kind string) {
	m.NoticesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordJournalError() {
	m.JournalErrors.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) SetTotalSupply(v float64) {
	m.TotalSupply.Set(v)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Server returns an HTTP server exposing /metrics on addr.
func (m *Metrics) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
