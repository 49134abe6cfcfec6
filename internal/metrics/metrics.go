// Package metrics exposes prometheus collectors for transfer diagnostics.
// Observations are advisory only and never affect control flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PartUploadDuration observes how long individual part uploads take.
	PartUploadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "blobvault",
		Name:      "part_upload_duration_seconds",
		Help:      "Duration of individual part uploads.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// BytesUploaded counts bytes successfully transferred to the store.
	BytesUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blobvault",
		Name:      "bytes_uploaded_total",
		Help:      "Total bytes successfully uploaded.",
	})

	// PartFailures counts failed part uploads.
	PartFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blobvault",
		Name:      "part_failures_total",
		Help:      "Total part uploads that failed.",
	})

	// UploadsCompleted counts finished uploads by strategy and result.
	UploadsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blobvault",
		Name:      "uploads_completed_total",
		Help:      "Total uploads finished, labeled by strategy and result.",
	}, []string{"strategy", "result"})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(PartUploadDuration, BytesUploaded, PartFailures, UploadsCompleted)
}

// Serve starts a /metrics server on the given addr (e.g., ":9090").
// Non-blocking when run in a goroutine.
func Serve(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}
