// Package metrics holds the Prometheus collectors for tour refreshes and the HTTP API.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Refresh Metrics
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "komoot_refresh_duration_seconds",
			Help:    "Duration of tour refreshes in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	RefreshErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "komoot_refresh_errors_total",
			Help: "Total number of failed tour refreshes",
		},
		[]string{"error_type"}, // "auth", "fetch", "other"
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "komoot_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last successful refresh",
		},
	)

	ToursFetched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "komoot_tours_fetched",
			Help: "Number of tours returned by the upstream listing in the last refresh",
		},
	)

	ToursKept = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "komoot_tours_kept",
			Help: "Number of tours left after overlap deduplication in the last refresh",
		},
	)

	WeekBuckets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "komoot_week_buckets",
			Help: "Number of weekly buckets in the published snapshot",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "komoot_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "komoot_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// Error types used as the error_type label of RefreshErrors
const (
	ErrorTypeAuth  = "auth"
	ErrorTypeFetch = "fetch"
	ErrorTypeOther = "other"
)

// ClassifyRefreshError maps a refresh failure to its error_type label
func ClassifyRefreshError(err error) string {
	var authErr *komoot.AuthError
	var fetchErr *komoot.FetchError
	switch {
	case errors.As(err, &authErr):
		return ErrorTypeAuth
	case errors.As(err, &fetchErr):
		return ErrorTypeFetch
	default:
		return ErrorTypeOther
	}
}

// RecordRefresh records the outcome of one refresh
func RecordRefresh(duration time.Duration, fetched, kept, weeks int, err error) {
	RefreshDuration.Observe(duration.Seconds())
	if err != nil {
		RefreshErrors.WithLabelValues(ClassifyRefreshError(err)).Inc()
		return
	}
	ToursFetched.Set(float64(fetched))
	ToursKept.Set(float64(kept))
	WeekBuckets.Set(float64(weeks))
	RefreshLastSuccess.SetToCurrentTime()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
