package shortener

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess   = "success"
	statusError     = "error"
	statusNotFound  = "not_found"
	statusCollision = "collision"
)

// Metrics holds the store and click collectors. A nil *Metrics records nothing.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryTotal    *prometheus.CounterVec
	Clicks        *prometheus.CounterVec
	CodeRetries   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shortener_db_query_duration_seconds",
				Help:    "Duration of link store queries",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
		QueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shortener_db_queries_total",
				Help: "Total number of link store queries",
			},
			[]string{"query_name", "status"},
		),
		Clicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shortener_clicks_total",
				Help: "Visits by whether the click was recorded",
			},
			[]string{"status"},
		),
		CodeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shortener_code_retries_total",
			Help: "Generated codes discarded because they were already taken",
		}),
	}
	reg.MustRegister(m.QueryDuration, m.QueryTotal, m.Clicks, m.CodeRetries)
	return m
}

func (m *Metrics) observeQuery(name string, start time.Time, status string) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
	m.QueryTotal.WithLabelValues(name, status).Inc()
}

func (m *Metrics) click(status string) {
	if m == nil {
		return
	}
	m.Clicks.WithLabelValues(status).Inc()
}

func (m *Metrics) codeRetry() {
	if m == nil {
		return
	}
	m.CodeRetries.Inc()
}
