package webfetcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records fetch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the fetch metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semfetch",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Fetch requests by output format and outcome.",
		}, []string{"format", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "semfetch",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Time spent validating, fetching and transforming a request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(format Format, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(format), outcome).Inc()
	m.duration.WithLabelValues(string(format)).Observe(elapsed.Seconds())
}
