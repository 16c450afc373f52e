package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "no2map"

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	// Selection lifecycle metrics.
	Selections        prometheus.Counter
	SupersededResults prometheus.Counter
	Outcomes          *prometheus.CounterVec // labels: phase={succeeded,failed}
	InFlight          prometheus.Gauge

	// Prediction client metrics.
	PredictionRequests *prometheus.CounterVec // labels: outcome={success,timeout,unreachable,server_error,malformed_response,canceled,invalid_coordinate}
	PredictionDuration prometheus.Histogram

	// Outbound integrations.
	OutcomesPublished prometheus.Counter
	PublishErrors     prometheus.Counter
	PublishDropped    prometheus.Counter
	WebsocketClients  prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Selections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Total map selections accepted.",
		}),
		SupersededResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_results_total",
			Help:      "Prediction results discarded because a newer selection was made.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_outcomes_total",
			Help:      "Settled selections by final phase.",
		}, []string{"phase"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predictions_in_flight",
			Help:      "Prediction calls currently awaiting a response.",
		}),
		PredictionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_requests_total",
			Help:      "Prediction service calls by outcome.",
		}, []string{"outcome"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Prediction service round-trip duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		OutcomesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_published_total",
			Help:      "Settled selections written to the outcome topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcome_publish_errors_total",
			Help:      "Failed writes to the outcome topic.",
		}),
		PublishDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcome_publish_dropped_total",
			Help:      "Outcomes dropped because the publish queue was full.",
		}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket subscribers.",
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Selections,
		m.SupersededResults,
		m.Outcomes,
		m.InFlight,
		m.PredictionRequests,
		m.PredictionDuration,
		m.OutcomesPublished,
		m.PublishErrors,
		m.PublishDropped,
		m.WebsocketClients,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
