// Package observability defines the Prometheus metrics for the tracker and API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "road_hazards"

type Metrics struct {
	PositionsProcessed *prometheus.CounterVec // labels: source={live,simulated}
	PositionErrors     *prometheus.CounterVec // labels: reason={unavailable,unsupported,timeout}
	AlertsRaised       *prometheus.CounterVec // labels: severity
	AlertActive        prometheus.Gauge
	SpeedKmh           prometheus.Gauge
	NearestHazard      prometheus.Gauge
	JournalDropped     prometheus.Counter
	StreamSubscribers  prometheus.Gauge
	RateLimited        prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		PositionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_processed_total",
			Help:      "Position samples handled by the tracker.",
		}, []string{"source"}),
		PositionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_errors_total",
			Help:      "Location errors reported by the live source.",
		}, []string{"reason"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Idle to active alert transitions by hazard severity.",
		}, []string{"severity"}),
		AlertActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_active",
			Help:      "1 while a proximity alert is shown, 0 otherwise.",
		}),
		SpeedKmh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speed_kmh",
			Help:      "Most recent speed estimate.",
		}),
		NearestHazard: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nearest_hazard_meters",
			Help:      "Distance to the nearest catalog hazard.",
		}),
		JournalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_dropped_total",
			Help:      "Alert events dropped because the journal queue was full.",
		}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Connected snapshot stream clients.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PositionsProcessed,
		m.PositionErrors,
		m.AlertsRaised,
		m.AlertActive,
		m.SpeedKmh,
		m.NearestHazard,
		m.JournalDropped,
		m.StreamSubscribers,
		m.RateLimited,
	}
}

// NewMetrics creates the metrics and registers them with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting registers with a private registry so tests can build
// as many instances as they like.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
