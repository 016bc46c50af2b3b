package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "strokes"

var (
	Edits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "edits_total",
		Help:      "Probability edits by redistribution branch (or rejected).",
	}, []string{"branch"})

	ScoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_requests_total",
		Help:      "Score requests by outcome: applied, stale, failed, cancelled.",
	}, []string{"outcome"})

	EngineLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "engine_request_seconds",
		Help:      "Latency of expected-score engine calls, including retries.",
		Buckets:   prometheus.DefBuckets,
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held in memory.",
	})

	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Game analyses by outcome.",
	}, []string{"outcome"})

	Calculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engine_calculations_total",
		Help:      "Expected-score calculations served by the engine, by outcome.",
	}, []string{"outcome"})
)
