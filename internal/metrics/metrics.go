// Package metrics exposes Prometheus collectors for the research tool.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeRequestsTotal      *prometheus.CounterVec
	scrapeRetriesTotal       *prometheus.CounterVec
	circuitState             *prometheus.GaugeVec
	rateLimitWaitSeconds     *prometheus.HistogramVec
	productsScoredTotal      prometheus.Counter
	discoveryRunSeconds      prometheus.Histogram
	discoveryItemsFailed     prometheus.Counter
	discoveryBatchInProgress prometheus.Gauge

	once sync.Once
)

// circuitStateValue maps breaker states onto gauge values.
var circuitStateValue = map[string]float64{
	"CLOSED":    0,
	"HALF_OPEN": 1,
	"OPEN":      2,
}

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nichescout_scrape_requests_total",
				Help: "Total scrape attempts, labeled by domain and outcome.",
			},
			[]string{"domain", "outcome"},
		)

		scrapeRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nichescout_scrape_retries_total",
				Help: "Total retry attempts, labeled by domain.",
			},
			[]string{"domain"},
		)

		circuitState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nichescout_circuit_state",
				Help: "Circuit breaker state per domain (0=closed, 1=half-open, 2=open).",
			},
			[]string{"domain"},
		)

		rateLimitWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nichescout_rate_limit_wait_seconds",
				Help:    "Histogram of request spacing waits.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"domain"},
		)

		productsScoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nichescout_products_scored_total",
				Help: "Total candidate products scored.",
			},
		)

		discoveryRunSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nichescout_discovery_run_seconds",
				Help:    "Wall time of complete discovery runs.",
				Buckets: []float64{30, 60, 120, 300, 600, 1200, 3600},
			},
		)

		discoveryItemsFailed = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nichescout_discovery_items_failed_total",
				Help: "Items that failed and were recorded as failure markers.",
			},
		)

		discoveryBatchInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nichescout_discovery_batch_in_progress",
				Help: "Tasks currently in flight in the worker pool.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest counts one scrape attempt outcome for a domain.
func ObserveRequest(domain, outcome string) {
	if scrapeRequestsTotal == nil {
		return
	}
	scrapeRequestsTotal.WithLabelValues(domain, outcome).Inc()
}

// IncRetry counts one retry for a domain.
func IncRetry(domain string) {
	if scrapeRetriesTotal == nil {
		return
	}
	scrapeRetriesTotal.WithLabelValues(domain).Inc()
}

// SetCircuitState records the breaker state for a domain.
func SetCircuitState(domain, state string) {
	if circuitState == nil {
		return
	}
	circuitState.WithLabelValues(domain).Set(circuitStateValue[state])
}

// ObserveRateLimitWait records the duration of a spacing wait.
func ObserveRateLimitWait(domain string, d time.Duration) {
	if rateLimitWaitSeconds == nil {
		return
	}
	rateLimitWaitSeconds.WithLabelValues(domain).Observe(d.Seconds())
}

// IncProductsScored counts scored products.
func IncProductsScored(n int) {
	if productsScoredTotal == nil {
		return
	}
	productsScoredTotal.Add(float64(n))
}

// ObserveRun records the wall time of one discovery run.
func ObserveRun(d time.Duration) {
	if discoveryRunSeconds == nil {
		return
	}
	discoveryRunSeconds.Observe(d.Seconds())
}

// IncItemsFailed counts per-item failure markers.
func IncItemsFailed(n int) {
	if discoveryItemsFailed == nil || n <= 0 {
		return
	}
	discoveryItemsFailed.Add(float64(n))
}

// IncBatchInFlight adjusts the in-flight task gauge.
func IncBatchInFlight() {
	if discoveryBatchInProgress != nil {
		discoveryBatchInProgress.Inc()
	}
}

// DecBatchInFlight adjusts the in-flight task gauge.
func DecBatchInFlight() {
	if discoveryBatchInProgress != nil {
		discoveryBatchInProgress.Dec()
	}
}
