package match

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hecto_matches_created_total",
		Help: "Matches created from the matchmaking queue.",
	})

	matchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hecto_matches_finished_total",
		Help: "Matches finished, labelled by outcome.",
	}, []string{"outcome"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hecto_ws_connections",
		Help: "Open WebSocket connections.",
	})
)
