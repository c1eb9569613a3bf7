package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubmissionsTotal   *prometheus.CounterVec
	TransitionsTotal   prometheus.Counter
	BroadcastsTotal    *prometheus.CounterVec
	ConnectedObservers prometheus.Gauge
	RequestLatency     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics. Must be called at most
// once per process; promauto registers against the default registry.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_submissions_total",
			Help: "Total complaint submissions by gate outcome",
		}, []string{"gate"}),
		TransitionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "complaints_transitions_total",
			Help: "Total complaint status transitions applied",
		}),
		BroadcastsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_broadcasts_total",
			Help: "Total realtime snapshots published by topic",
		}, []string{"topic"}),
		ConnectedObservers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "complaints_connected_observers",
			Help: "Currently connected realtime observers",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complaints_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
