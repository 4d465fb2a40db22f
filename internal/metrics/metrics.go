// Package metrics defines the Prometheus collectors for the dispatch
// pipeline. Collectors register on the default registry and are served by
// promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the number of claimed jobs buffered between the
	// fetcher and the workers.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ocrflow_queue_depth",
		Help: "Number of claimed jobs currently buffered in the dispatch queue.",
	})

	// JobsClaimed counts pending→processing transitions performed by the fetcher.
	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ocrflow_jobs_claimed_total",
		Help: "Total jobs claimed from storage.",
	})

	// JobsCompleted counts jobs that reached the completed status.
	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ocrflow_jobs_completed_total",
		Help: "Total jobs marked completed.",
	})

	// JobsFailed counts jobs that reached the error status.
	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ocrflow_jobs_failed_total",
		Help: "Total jobs marked error.",
	})

	// RequestDuration observes the wall time of one OCR engine request.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ocrflow_ocr_request_seconds",
		Help:    "Duration of outbound OCR requests in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})
)
