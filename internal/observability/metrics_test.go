package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.IncUnlockAttempt("unlocked")
	m.ObserveResync("success", time.Millisecond)
	m.IncGraphRebuild("success")
	m.IncNotification("skill_unlocked", "published")
	m.ObserveAggregateOperation("op", "success", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status: want=503 got=%d", rec.Code)
	}
}

func TestMetricsCountersAndHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.IncUnlockAttempt("unlocked")
	m.IncUnlockAttempt("unlocked")
	m.IncUnlockAttempt("conditions_not_met")
	m.IncAggregateConflict("reward.grant")

	if got := testutil.ToFloat64(m.unlockAttempts.WithLabelValues("unlocked")); got != 2 {
		t.Fatalf("unlocked attempts: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.aggregateConflict.WithLabelValues("reward.grant")); got != 1 {
		t.Fatalf("conflicts: want=1 got=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("handler status: want=200 got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "progression_unlock_attempts_total") {
		t.Fatalf("expected unlock counter in exposition")
	}
}
