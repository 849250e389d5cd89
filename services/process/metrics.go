package process

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tool run outcomes
const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeCached  = "cached"
	outcomeDeduped = "deduped"
	outcomeStale   = "stale"
)

var (
	toolRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "process_tool_runs_total",
		Help: "Tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "process_tool_duration_seconds",
		Help:    "Gateway call duration per tool",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"tool"})

	consolidationSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "process_consolidation_sync_total",
		Help: "Folder fetches performed by field sync, by outcome",
	}, []string{"outcome"})

	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "process_saves_total",
		Help: "Phase saves by outcome",
	}, []string{"outcome"})
)
