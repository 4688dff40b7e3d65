package coordinator

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes refresh instrumentation. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry bookkeeping.
type Metrics struct {
	refreshes   prometheus.Counter
	failures    prometheus.Counter
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petsbridge_refresh_total",
			Help: "Number of snapshot refreshes attempted.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petsbridge_refresh_failures_total",
			Help: "Number of snapshot refreshes that failed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "petsbridge_refresh_duration_seconds",
			Help:    "Wall time of one full snapshot build.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "petsbridge_last_refresh_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh.",
		}),
	}
	reg.MustRegister(m.refreshes, m.failures, m.duration, m.lastSuccess)
	return m
}

func (m *Metrics) observeAttempt(seconds float64) {
	if m == nil {
		return
	}
	m.refreshes.Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) observeSuccess(unixTime float64) {
	if m == nil {
		return
	}
	m.lastSuccess.Set(unixTime)
}
