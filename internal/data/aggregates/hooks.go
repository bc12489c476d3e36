package aggregates

import (
	"time"

	"github.com/yungbote/progression-backend/internal/observability"
)

// Hooks receives one signal per aggregate write, plus one per conflict or
// retryable failure.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

// NewObservabilityHooks reports aggregate writes to the progression metrics.
// A nil Metrics drops every signal.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	return metricsHooks{m: metrics}
}

type metricsHooks struct {
	m *observability.Metrics
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(name, status, dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(name) }

func (h metricsHooks) IncRetry(name string) { h.m.IncAggregateRetry(name) }
