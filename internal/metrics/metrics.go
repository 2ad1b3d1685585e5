// Package metrics exposes the search core's Prometheus counters and
// histograms, adapted from the teacher's internal/metrics/service.go
// (crawl_pages_fetched_total, crawl_fetch_duration_seconds, ...) relabeled
// for per-site search concerns.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	SitesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_sites_fetched_total",
		Help: "Fetch attempts per site, labeled by outcome.",
	}, []string{"site", "outcome"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "search_fetch_duration_seconds",
		Help:    "Time spent fetching a single site's search page, including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"site"})

	ResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_results_total",
		Help: "Post-processed result rows emitted, labeled by site.",
	}, []string{"site"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_cache_hits_total",
		Help: "Searches served entirely from the result cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_cache_misses_total",
		Help: "Searches that required at least one live fetch.",
	})

	CircuitOpen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_circuit_open_total",
		Help: "Requests rejected because a site's rate-limiter circuit was open.",
	}, []string{"site"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_duration_seconds",
		Help:    "Wall-clock time for a whole search across all applicable sites.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})

	InFlightSearches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "search_in_flight",
		Help: "Searches currently being aggregated.",
	})
)

// StartServer launches a background HTTP server exposing /metrics, mirroring
// the teacher's metrics endpoint. It returns a shutdown func the caller
// should invoke on process exit.
func StartServer(addr string) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server exited")
		}
	}()

	return srv.Shutdown
}

// Time starts timing a fetch for site and returns a func that records the
// elapsed time against FetchDuration. Kept as a small helper so call sites
// read as `defer metrics.Time(site)()`.
func Time(site string) func() {
	start := time.Now()
	return func() {
		FetchDuration.WithLabelValues(site).Observe(time.Since(start).Seconds())
	}
}
