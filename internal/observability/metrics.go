package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	workflowCounter       *prometheus.CounterVec
	alertCounter          *prometheus.CounterVec
	limitCheckFailures    prometheus.Counter
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
	rateCacheCounter      *prometheus.CounterVec
	openPositionGauge     *prometheus.GaugeVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		workflowCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Maker-checker transitions applied to balance entries and transactions",
		}, []string{"entity", "to"})

		alertCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "correspondent_alerts_raised_total",
			Help: "Correspondent limit alerts newly raised",
		}, []string{"type"})

		limitCheckFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "correspondent_limit_check_failures_total",
			Help: "Limit checks that failed and were swallowed",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		rateCacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mid_rate_cache_lookups_total",
			Help: "Mid-rate cache lookups by result",
		}, []string{"result"})

		openPositionGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fcy_open_position_percentage",
			Help: "Last computed open position as a percentage of capital",
		}, []string{"currency"})

		prometheus.MustRegister(
			httpDurationHistogram,
			workflowCounter,
			alertCounter,
			limitCheckFailures,
			idempotencyCounter,
			workerRunCounter,
			rateCacheCounter,
			openPositionGauge,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementWorkflowTransition(entity, to string) {
	if workflowCounter == nil {
		return
	}
	workflowCounter.WithLabelValues(entity, to).Inc()
}

func IncrementAlertRaised(alertType string) {
	if alertCounter == nil {
		return
	}
	alertCounter.WithLabelValues(alertType).Inc()
}

func IncrementLimitCheckFailure() {
	if limitCheckFailures == nil {
		return
	}
	limitCheckFailures.Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func IncrementRateCacheLookup(result string) {
	if rateCacheCounter == nil {
		return
	}
	rateCacheCounter.WithLabelValues(result).Inc()
}

// SetOpenPosition records the percentage for a currency code, or "ALL" for the overall figure.
func SetOpenPosition(currency string, percentage float64) {
	if openPositionGauge == nil {
		return
	}
	openPositionGauge.WithLabelValues(currency).Set(percentage)
}
