package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "servicenow_mcp",
			Name:      "sessions_active",
			Help:      "Sessions currently held in the store, including expired ones not yet swept.",
		},
	)

	sessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "servicenow_mcp",
			Name:      "sessions_swept_total",
			Help:      "Expired sessions removed by the sweeper.",
		},
	)
)
