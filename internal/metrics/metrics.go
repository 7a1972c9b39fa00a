// Package metrics exposes Prometheus collectors for the lead engine.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeRunsTotal            *prometheus.CounterVec
	scrapeBytesTotal           *prometheus.CounterVec
	circuitTransitionsTotal    *prometheus.CounterVec
	signalsIngestedTotal       *prometheus.CounterVec
	signalsDedupedTotal        prometheus.Counter
	scoresComputedTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadengine_scrape_runs_total",
				Help: "Total scrape runs, labeled by scraper kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		scrapeBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadengine_scrape_bytes_total",
				Help: "Total bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		circuitTransitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadengine_circuit_transitions_total",
				Help: "Circuit breaker state transitions, labeled by transition.",
			},
			[]string{"transition"},
		)

		signalsIngestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadengine_signals_ingested_total",
				Help: "New signals created, labeled by signal type.",
			},
			[]string{"signal_type"},
		)

		signalsDedupedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leadengine_signals_deduped_total",
				Help: "Fragments discarded because their dedup key already existed.",
			},
		)

		scoresComputedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadengine_scores_computed_total",
				Help: "Score recomputations, labeled by resulting tier.",
			},
			[]string{"tier"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadengine_active_workers",
				Help: "Number of workers currently processing a scrape run.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadengine_rate_limit_delays_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrapeRun counts one scrape run outcome for a scraper kind.
func ObserveScrapeRun(kind, outcome string) {
	Init()
	scrapeRunsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveFetch records the bytes fetched from a site.
func ObserveFetch(site string, bytesFetched int) {
	Init()
	if bytesFetched > 0 {
		scrapeBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// CircuitTransition counts a breaker transition (opened, half_open, closed).
func CircuitTransition(transition string) {
	Init()
	circuitTransitionsTotal.WithLabelValues(transition).Inc()
}

// ObserveSignal counts a newly created signal.
func ObserveSignal(signalType string) {
	Init()
	signalsIngestedTotal.WithLabelValues(signalType).Inc()
}

// ObserveDedup counts a fragment dropped as a duplicate.
func ObserveDedup() {
	Init()
	signalsDedupedTotal.Inc()
}

// ObserveScore counts a score recomputation for the resulting tier.
func ObserveScore(tier string) {
	Init()
	scoresComputedTotal.WithLabelValues(tier).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}
