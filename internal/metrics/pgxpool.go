package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes the pgx pool counters as gauges. Every
// binary that opens a pool registers it once at startup.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	gauges := []struct {
		name string
		help string
		read func(*pgxpool.Stat) int32
	}{
		{"pgxpool_acquired_conns", "Connections currently checked out of the pool", (*pgxpool.Stat).AcquiredConns},
		{"pgxpool_idle_conns", "Connections sitting idle in the pool", (*pgxpool.Stat).IdleConns},
		{"pgxpool_total_conns", "Open connections, idle plus acquired", (*pgxpool.Stat).TotalConns},
		{"pgxpool_max_conns", "Configured pool size ceiling", (*pgxpool.Stat).MaxConns},
	}
	for _, g := range gauges {
		read := g.read
		prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, func() float64 {
			return float64(read(pool.Stat()))
		}))
	}
}
