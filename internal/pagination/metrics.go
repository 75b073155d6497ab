package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts paginated queries by strategy and page bucket.
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedepot_pagination_requests_total",
			Help: "Total number of paginated queries",
		},
		[]string{"strategy", "page_range"},
	)

	// phaseDuration tracks time spent per pagination phase.
	phaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filedepot_pagination_duration_seconds",
			Help:    "Duration of pagination phases",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0},
		},
		[]string{"phase"},
	)

	// countCacheTotal counts cache lookups by outcome (hit, miss).
	countCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedepot_pagination_count_cache_total",
			Help: "Count-cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// errorsTotal counts pagination errors by type
	// (query, count_timeout, cursor_decode).
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedepot_pagination_errors_total",
			Help: "Total number of pagination errors",
		},
		[]string{"type"},
	)
)

func recordRequest(strategy string, page int) {
	requestsTotal.WithLabelValues(strategy, pageRangeBucket(page)).Inc()
}

func recordPhase(phase string, seconds float64) {
	phaseDuration.WithLabelValues(phase).Observe(seconds)
}

func recordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	countCacheTotal.WithLabelValues(outcome).Inc()
}

func recordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

func pageRangeBucket(page int) string {
	switch {
	case page <= 10:
		return "1-10"
	case page <= 50:
		return "11-50"
	case page <= 100:
		return "51-100"
	default:
		return "100+"
	}
}
