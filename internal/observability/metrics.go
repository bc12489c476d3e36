package observability

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/progression-backend/internal/platform/logger"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver so callers
// never branch on METRICS_ENABLED themselves.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps      *prometheus.HistogramVec
	aggregateConflict *prometheus.CounterVec
	aggregateRetry    *prometheus.CounterVec

	unlockAttempts  *prometheus.CounterVec
	resyncDuration  *prometheus.HistogramVec
	graphRebuilds   *prometheus.CounterVec
	notifyPublished *prometheus.CounterVec

	// Plain tallies read by the SLO evaluator.
	unlockTotal  atomic.Uint64
	unlockFailed atomic.Uint64
	resyncTotal  atomic.Uint64
	resyncFailed atomic.Uint64
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics set, or returns nil when metrics are
// disabled.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("prometheus metrics enabled")
		}
	})
	return instance
}

// NewMetrics registers every collector on reg. Tests pass a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progression_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "progression_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progression_aggregate_operation_duration_seconds",
			Help:    "Transactional write latency by operation/status.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"operation", "status"}),
		aggregateConflict: f.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_aggregate_conflicts_total",
			Help: "Transactional writes rejected by a uniqueness or version conflict.",
		}, []string{"operation"}),
		aggregateRetry: f.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_aggregate_retryable_failures_total",
			Help: "Transactional writes that failed with a retryable error.",
		}, []string{"operation"}),
		unlockAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_unlock_attempts_total",
			Help: "Unlock attempts by outcome.",
		}, []string{"outcome"}),
		resyncDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progression_stats_resync_duration_seconds",
			Help:    "Streak resync latency by status.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"status"}),
		graphRebuilds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_skill_graph_rebuilds_total",
			Help: "Skill graph cache rebuilds by status.",
		}, []string{"status"}),
		notifyPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_notifications_total",
			Help: "Progress notifications by event type and status.",
		}, []string{"type", "status"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(orUnknown(name), orUnknown(status)).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflict.WithLabelValues(orUnknown(name)).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetry.WithLabelValues(orUnknown(name)).Inc()
}

// IncUnlockAttempt records one AttemptUnlock outcome: unlocked,
// already_unlocked, conditions_not_met, a client error code or error. Only
// "error" burns the SLO budget.
func (m *Metrics) IncUnlockAttempt(outcome string) {
	if m == nil {
		return
	}
	m.unlockAttempts.WithLabelValues(orUnknown(outcome)).Inc()
	m.unlockTotal.Add(1)
	if outcome == "error" {
		m.unlockFailed.Add(1)
	}
}

func (m *Metrics) ObserveResync(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.resyncDuration.WithLabelValues(orUnknown(status)).Observe(dur.Seconds())
	m.resyncTotal.Add(1)
	switch status {
	case "ok", "validation", "not_found", "user_not_found":
	default:
		m.resyncFailed.Add(1)
	}
}

func (m *Metrics) IncGraphRebuild(status string) {
	if m == nil {
		return
	}
	m.graphRebuilds.WithLabelValues(orUnknown(status)).Inc()
}

func (m *Metrics) IncNotification(eventType, status string) {
	if m == nil {
		return
	}
	m.notifyPublished.WithLabelValues(orUnknown(eventType), orUnknown(status)).Inc()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
