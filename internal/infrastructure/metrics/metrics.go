package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sources
	SourceFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "address_vision",
		Subsystem: "source",
		Name:      "fetch_total",
		Help:      "Total upstream source fetches by terminal status",
	}, []string{"source", "chain", "status"})

	SourceFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "address_vision",
		Subsystem: "source",
		Name:      "fetch_duration_seconds",
		Help:      "Upstream source fetch duration including retries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"source"})

	SourceCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "address_vision",
		Subsystem: "source",
		Name:      "cache_hits_total",
		Help:      "Source results served from the freshness cache",
	}, []string{"source"})

	SourceRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "address_vision",
		Subsystem: "source",
		Name:      "retries_total",
		Help:      "Retries of transient source failures",
	}, []string{"source", "reason"})

	SourceRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "address_vision",
		Subsystem: "source",
		Name:      "rate_limit_waits_total",
		Help:      "Calls delayed by the per-source rate limiter",
	}, []string{"source"})

	// Lookup session
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "address_vision",
		Subsystem: "lookup",
		Name:      "resolutions_total",
		Help:      "Identity resolutions by outcome",
	}, []string{"kind", "outcome"})

	StaleWritesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "address_vision",
		Subsystem: "lookup",
		Name:      "stale_writes_dropped_total",
		Help:      "Results discarded because a newer query superseded them",
	}, []string{"source"})

	CurrentGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "address_vision",
		Subsystem: "lookup",
		Name:      "generation",
		Help:      "Generation counter of the active query",
	})
)
