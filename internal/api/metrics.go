package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_analyses_total",
		Help: "Analyses run, by outcome",
	}, []string{"status"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analytics_analysis_duration_seconds",
		Help:    "Wall time of one full analysis pipeline run",
		Buckets: prometheus.DefBuckets,
	})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "analytics_websocket_clients",
		Help: "Currently connected WebSocket clients",
	})
)
