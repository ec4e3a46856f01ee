package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
)

// Metrics records probe outcomes for Prometheus.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	healthy  prometheus.Gauge
}

// NewMetrics creates the probe collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipv8_probe_runs_total",
			Help: "Attestation probe runs by result and failing stage.",
		}, []string{"result", "stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ipv8_probe_duration_seconds",
			Help:    "Duration of attestation probe runs.",
			Buckets: prometheus.DefBuckets,
		}),
		healthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ipv8_probe_healthy",
			Help: "1 if the last attestation probe passed, 0 otherwise.",
		}),
	}

	reg.MustRegister(m.runs, m.duration, m.healthy)
	return m
}

// Observe records a single probe result.
func (m *Metrics) Observe(res domain.Result) {
	result, stage := "healthy", "none"
	if !res.Healthy() {
		result, stage = "unhealthy", string(res.Stage())
	}

	m.runs.WithLabelValues(result, stage).Inc()
	m.duration.Observe(res.Duration.Seconds())
	if res.Healthy() {
		m.healthy.Set(1)
	} else {
		m.healthy.Set(0)
	}
}
