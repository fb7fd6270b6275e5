package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Attempts        *prometheus.CounterVec
	Duration        prometheus.Histogram
	SessionsRunning prometheus.Gauge
	RateLimited     prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the pairing collectors on reg. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pair_attempts_total",
			Help: "Pairing attempts by outcome kind",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pair_duration_seconds",
			Help:    "Wall time of a pairing run, browser launch to close",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		}),
		SessionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pair_browser_sessions_running",
			Help: "Browser sessions currently in flight",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pair_rate_limited_total",
			Help: "Requests rejected by the per-client rate limit",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Attempts, m.Duration, m.SessionsRunning, m.RateLimited)
	return m
}

// Handler returns an http.Handler for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
