package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const DBNameLabel = "db_name"

// StatsSource is implemented by *pgxpool.Pool.
type StatsSource interface {
	Stat() *pgxpool.Stat
}

// PoolStatsCollector exports pgxpool statistics at scrape time.
type PoolStatsCollector struct {
	db StatsSource

	maxConns           *prometheus.Desc
	totalConns         *prometheus.Desc
	acquiredConns      *prometheus.Desc
	idleConns          *prometheus.Desc
	acquireCount       *prometheus.Desc
	acquireDuration    *prometheus.Desc
	emptyAcquireCount  *prometheus.Desc
	maxIdleDestroy     *prometheus.Desc
	maxLifetimeDestroy *prometheus.Desc
}

func NewPoolStatsCollector(db StatsSource, dbName string) *PoolStatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, nil, prometheus.Labels{DBNameLabel: dbName})
	}
	return &PoolStatsCollector{
		db:                 db,
		maxConns:           desc("db_pool_max_conns", "Maximum number of connections in the pool."),
		totalConns:         desc("db_pool_total_conns", "Total number of connections in the pool."),
		acquiredConns:      desc("db_pool_acquired_conns", "Number of currently acquired connections in the pool."),
		idleConns:          desc("db_pool_idle_conns", "Number of currently idle connections in the pool."),
		acquireCount:       desc("db_pool_acquire_count_total", "Cumulative count of successful connection acquisitions."),
		acquireDuration:    desc("db_pool_acquire_duration_seconds_total", "Total time blocked waiting for a connection, in seconds."),
		emptyAcquireCount:  desc("db_pool_empty_acquire_count_total", "Acquisitions that had to wait because the pool was empty."),
		maxIdleDestroy:     desc("db_pool_max_idle_closed_total", "Connections closed for exceeding MaxConnIdleTime."),
		maxLifetimeDestroy: desc("db_pool_max_lifetime_closed_total", "Connections closed for exceeding MaxConnLifetime."),
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxConns
	ch <- c.totalConns
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.acquireCount
	ch <- c.acquireDuration
	ch <- c.emptyAcquireCount
	ch <- c.maxIdleDestroy
	ch <- c.maxLifetimeDestroy
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.db.Stat()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}

	gauge(c.maxConns, float64(s.MaxConns()))
	gauge(c.totalConns, float64(s.TotalConns()))
	gauge(c.acquiredConns, float64(s.AcquiredConns()))
	gauge(c.idleConns, float64(s.IdleConns()))
	counter(c.acquireCount, float64(s.AcquireCount()))
	counter(c.acquireDuration, s.AcquireDuration().Seconds())
	counter(c.emptyAcquireCount, float64(s.EmptyAcquireCount()))
	counter(c.maxIdleDestroy, float64(s.MaxIdleDestroyCount()))
	counter(c.maxLifetimeDestroy, float64(s.MaxLifetimeDestroyCount()))
}
