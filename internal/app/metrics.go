package app

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ums_resource_fetches_total",
			Help: "Resource fetches by kind and outcome",
		},
		[]string{"resource", "status"},
	)

	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ums_cache_lookups_total",
			Help: "Fetch cache lookups by result",
		},
		[]string{"result"},
	)

	sectionRenders = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ums_section_render_seconds",
			Help:    "Time to load and render a page section",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"section", "outcome"},
	)

	locatorResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ums_locator_results_total",
			Help: "Event locator outcomes",
		},
		[]string{"result"},
	)

	catalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ums_catalog_reloads_total",
			Help: "Semester index reloads by outcome",
		},
		[]string{"outcome"},
	)
)

// fetchStatus turns a fetch error into a metric label
func fetchStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return strconv.Itoa(fe.StatusCode)
	}
	if errors.Is(err, ErrInvalidData) {
		return "invalid"
	}
	return "error"
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
