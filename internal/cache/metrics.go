package cache

import "github.com/prometheus/client_golang/prometheus"

// KeyPrefixLabel labels cache metrics with the key prefix they apply to.
const KeyPrefixLabel = "key_prefix"

// Metrics contains the Prometheus collectors for the cache and rate limiter.
// A nil *Metrics records nothing.
type Metrics struct {
	Hits     *prometheus.CounterVec
	Misses   *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Limited  prometheus.Counter
	Admitted prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hit_count",
			Help: "The number of cache hits",
		}, []string{KeyPrefixLabel}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_miss_count",
			Help: "The number of cache misses",
		}, []string{KeyPrefixLabel}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_error_count",
			Help: "Cache commands that failed",
		}, []string{KeyPrefixLabel}),
		Limited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		}),
		Admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_admitted_total",
			Help: "Requests admitted by the rate limiter",
		}),
	}
	reg.MustRegister(m.Hits, m.Misses, m.Errors, m.Limited, m.Admitted)
	return m
}

func (m *Metrics) hit(prefix string) {
	if m != nil {
		m.Hits.WithLabelValues(prefix).Inc()
	}
}

func (m *Metrics) miss(prefix string) {
	if m != nil {
		m.Misses.WithLabelValues(prefix).Inc()
	}
}

func (m *Metrics) failed(prefix string) {
	if m != nil {
		m.Errors.WithLabelValues(prefix).Inc()
	}
}

func (m *Metrics) limited(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.Admitted.Inc()
		return
	}
	m.Limited.Inc()
}
