// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dreamspace",
		Name:      "generations_total",
		Help:      "Generation requests by final status and failure kind",
	}, []string{"status", "kind"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dreamspace",
		Name:      "generation_duration_seconds",
		Help:      "Duration of generation pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stage"})

	FurnitureRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dreamspace",
		Name:      "furniture_renders_total",
		Help:      "Single-piece furniture renders by final status",
	}, []string{"status"})

	DetectedObjects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dreamspace",
		Name:      "detected_objects_total",
		Help:      "Objects reported by detection after filtering",
	})

	LayoutMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dreamspace",
		Name:      "layout_mutations_total",
		Help:      "Furniture layout mutations by operation",
	}, []string{"op"})

	FilesPurged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dreamspace",
		Name:      "files_purged_total",
		Help:      "Files removed by purge sweeps",
	}, []string{"mode"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dreamspace",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
