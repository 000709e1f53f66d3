package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "servicenow_mcp",
		Name:      "auth_attempts_total",
		Help:      "Authentication attempts by login path and outcome.",
	},
	[]string{"method", "outcome"},
)

func authAttempt(method, outcome string) {
	authAttemptsTotal.WithLabelValues(method, outcome).Inc()
}
