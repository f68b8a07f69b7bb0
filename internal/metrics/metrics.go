// Package metrics exposes Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels recorded on the per-stage counters.
const (
	OutcomeOK        = "ok"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

var (
	listingPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tretyakov_listing_pages_total",
			Help: "Listing pages processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	detailPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tretyakov_detail_pages_total",
			Help: "Detail pages processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	imagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tretyakov_images_total",
			Help: "Images ingested, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tretyakov_fetch_duration_seconds",
			Help:    "Histogram of page fetch latencies, labeled by pipeline stage.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveListingPage counts one processed listing page.
func ObserveListingPage(outcome string) {
	listingPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDetailPage counts one processed detail page.
func ObserveDetailPage(outcome string) {
	detailPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveImage counts one image ingestion attempt.
func ObserveImage(outcome string) {
	imagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchDuration records how long one gated fetch took.
func ObserveFetchDuration(stage string, d time.Duration) {
	fetchDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}
