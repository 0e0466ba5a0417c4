package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flightdeck"

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	ProviderRequests      *prometheus.CounterVec   // labels: source, kind={metar,taf,sigmet}, outcome={success,error}
	ProviderDuration      *prometheus.HistogramVec // labels: source
	BriefingCache         *prometheus.CounterVec   // labels: result={hit,miss,error}
	Refreshes             *prometheus.CounterVec   // labels: trigger={api,schedule}, outcome={success,error}
	ObservationsPublished prometheus.Counter
}

// NewMetrics creates all metrics and registers them with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.BriefingCache,
		m.Refreshes,
		m.ObservationsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they like without "duplicate registration" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Weather provider requests by source, product kind and outcome.",
		}, []string{"source", "kind", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Weather provider request latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		BriefingCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefing_cache_total",
			Help:      "Briefing cache lookups by result.",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefing_refreshes_total",
			Help:      "Briefing refreshes by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		ObservationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_published_total",
			Help:      "Tagged observations written to Kafka.",
		}),
	}
}

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
