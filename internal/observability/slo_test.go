package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSLOEvaluatorBurnRate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	e := NewSLOEvaluator(m, nil, SLOConfig{Interval: time.Minute, Window: time.Hour, UnlockTarget: 0.99, BurnWarn: 2, BurnCrit: 10})

	for i := 0; i < 95; i++ {
		m.IncUnlockAttempt("unlocked")
	}
	for i := 0; i < 5; i++ {
		m.IncUnlockAttempt("error")
	}
	m.ObserveResync("ok", time.Millisecond)
	m.ObserveResync("not_found", time.Millisecond)
	m.ObserveResync("user_not_found", time.Millisecond)

	out := e.Evaluate()
	if len(out) != 2 {
		t.Fatalf("expected 2 objectives, got %d", len(out))
	}
	unlock := out[0]
	if unlock.Total != 100 || unlock.Bad != 5 {
		t.Fatalf("unexpected unlock tallies: %+v", unlock)
	}
	// 5% errors against a 1% budget burns at 5x.
	if unlock.BurnRate < 4.99 || unlock.BurnRate > 5.01 || unlock.Severity != "warning" {
		t.Fatalf("unexpected burn: %+v", unlock)
	}
	if resync := out[1]; resync.Bad != 0 || resync.Severity != "" {
		t.Fatalf("client errors must not burn the resync budget: %+v", resync)
	}

	// The next sample only sees new traffic, but the window still holds the old.
	m.IncUnlockAttempt("unlocked")
	out = e.Evaluate()
	if out[0].Total != 101 || out[0].Bad != 5 {
		t.Fatalf("window should accumulate samples: %+v", out[0])
	}
}

func TestSLOEvaluatorWindowRollsOff(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	e := NewSLOEvaluator(m, nil, SLOConfig{Interval: time.Minute, Window: 2 * time.Minute})

	m.IncUnlockAttempt("error")
	e.Evaluate()
	e.Evaluate()
	out := e.Evaluate()
	if out[0].Total != 0 || out[0].SLI != 1 {
		t.Fatalf("old samples should have rolled off: %+v", out[0])
	}
}

func TestSLOEvaluatorNilMetrics(t *testing.T) {
	if e := NewSLOEvaluator(nil, nil, SLOConfig{}); e != nil {
		t.Fatalf("expected nil evaluator without metrics")
	}
	var e *SLOEvaluator
	if e.Evaluate() != nil {
		t.Fatalf("nil evaluator should return nothing")
	}
}
