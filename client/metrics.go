package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "servicenow_mcp",
			Name:      "remote_requests_total",
			Help:      "Knowledge store requests by operation and outcome class.",
		},
		[]string{"operation", "outcome"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "servicenow_mcp",
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of single knowledge store requests, retries counted separately.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	remoteRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "servicenow_mcp",
			Name:      "remote_retries_total",
			Help:      "Retries issued after transient knowledge store failures.",
		},
		[]string{"operation"},
	)

	recordsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "servicenow_mcp",
			Name:      "records_skipped_total",
			Help:      "Returned records dropped because they failed structural validation.",
		},
	)
)

func outcomeClass(status int) string {
	switch {
	case status == 0:
		return "network_error"
	case status < 300:
		return "2xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
