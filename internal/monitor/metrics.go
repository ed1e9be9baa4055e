package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_job_runs_total",
			Help: "Completed monitor job runs by outcome",
		},
		[]string{"job", "result"},
	)

	jobLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitor_job_last_run_timestamp_seconds",
			Help: "Unix time of the last successful run per job",
		},
		[]string{"job"},
	)

	providerChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_health_checks_total",
			Help: "Recorded provider health checks by observed status",
		},
		[]string{"provider", "status"},
	)

	providerSuccessRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_success_rate",
			Help: "Trailing 24h success rate per provider (percent)",
		},
		[]string{"provider"},
	)

	providerAvgLatency = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_avg_latency_ms",
			Help: "Trailing 24h average probe latency per provider (milliseconds)",
		},
		[]string{"provider"},
	)
)
