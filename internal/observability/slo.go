package observability

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type rollingSum struct {
	values []float64
	idx    int
	total  float64
}

func newRollingSum(size int) *rollingSum {
	if size < 1 {
		size = 1
	}
	return &rollingSum{values: make([]float64, size)}
}

func (r *rollingSum) add(v float64) {
	r.total += v - r.values[r.idx]
	r.values[r.idx] = v
	r.idx++
	if r.idx >= len(r.values) {
		r.idx = 0
	}
}

type SLOConfig struct {
	Interval time.Duration
	Window   time.Duration

	// Targets are success ratios in [0,1].
	UnlockTarget float64
	ResyncTarget float64

	// BurnWarn and BurnCrit are error budget burn rates that trigger a log.
	BurnWarn    float64
	BurnCrit    float64
	MinInterval time.Duration
}

func (c SLOConfig) withDefaults() SLOConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Window < c.Interval {
		c.Window = 24 * time.Hour
	}
	if c.UnlockTarget <= 0 || c.UnlockTarget > 1 {
		c.UnlockTarget = 0.995
	}
	if c.ResyncTarget <= 0 || c.ResyncTarget > 1 {
		c.ResyncTarget = 0.99
	}
	if c.BurnWarn <= 0 {
		c.BurnWarn = 2
	}
	if c.BurnCrit <= 0 {
		c.BurnCrit = 10
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 15 * time.Minute
	}
	return c
}

// SLOStatus is one objective's state over the rolling window.
type SLOStatus struct {
	Name     string
	Total    float64
	Bad      float64
	SLI      float64
	Target   float64
	BurnRate float64
	Severity string
}

// SLOEvaluator samples the unlock and resync tallies every interval and logs
// when the error budget burns faster than configured.
type SLOEvaluator struct {
	metrics *Metrics
	log     *logger.Logger
	cfg     SLOConfig
	now     func() time.Time

	unlockTotal  *rollingSum
	unlockFailed *rollingSum
	resyncTotal  *rollingSum
	resyncFailed *rollingSum

	prevUnlockTotal  uint64
	prevUnlockFailed uint64
	prevResyncTotal  uint64
	prevResyncFailed uint64

	alertMu    sync.Mutex
	lastAlerts map[string]time.Time
}

func NewSLOEvaluator(m *Metrics, log *logger.Logger, cfg SLOConfig) *SLOEvaluator {
	if m == nil {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	size := int(cfg.Window / cfg.Interval)
	return &SLOEvaluator{
		metrics:      m,
		log:          log.With("component", "SLOEvaluator"),
		cfg:          cfg,
		now:          time.Now,
		unlockTotal:  newRollingSum(size),
		unlockFailed: newRollingSum(size),
		resyncTotal:  newRollingSum(size),
		resyncFailed: newRollingSum(size),
		lastAlerts:   map[string]time.Time{},
	}
}

// Start runs the evaluator until ctx is done. Nil-safe.
func (e *SLOEvaluator) Start(ctx context.Context) {
	if e == nil {
		return
	}
	go e.run(ctx)
	e.log.Info("SLO evaluator started", "window", e.cfg.Window.String(), "interval", e.cfg.Interval.String())
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Evaluate()
		}
	}
}

// Evaluate takes one sample and returns the status of each objective.
func (e *SLOEvaluator) Evaluate() []SLOStatus {
	if e == nil || e.metrics == nil {
		return nil
	}
	ut, uf := e.metrics.unlockTotal.Load(), e.metrics.unlockFailed.Load()
	rt, rf := e.metrics.resyncTotal.Load(), e.metrics.resyncFailed.Load()

	e.unlockTotal.add(float64(ut - e.prevUnlockTotal))
	e.unlockFailed.add(float64(uf - e.prevUnlockFailed))
	e.resyncTotal.add(float64(rt - e.prevResyncTotal))
	e.resyncFailed.add(float64(rf - e.prevResyncFailed))
	e.prevUnlockTotal, e.prevUnlockFailed = ut, uf
	e.prevResyncTotal, e.prevResyncFailed = rt, rf

	out := []SLOStatus{
		e.status("unlock_availability", e.unlockTotal.total, e.unlockFailed.total, e.cfg.UnlockTarget),
		e.status("resync_availability", e.resyncTotal.total, e.resyncFailed.total, e.cfg.ResyncTarget),
	}
	for _, st := range out {
		e.maybeAlert(st)
	}
	return out
}

func (e *SLOEvaluator) status(name string, total, bad, target float64) SLOStatus {
	st := SLOStatus{Name: name, Total: total, Bad: bad, SLI: 1, Target: target}
	if total <= 0 {
		return st
	}
	st.SLI = 1 - bad/total
	budget := 1 - target
	if budget > 0 {
		st.BurnRate = (bad / total) / budget
	}
	switch {
	case st.BurnRate >= e.cfg.BurnCrit:
		st.Severity = "critical"
	case st.BurnRate >= e.cfg.BurnWarn:
		st.Severity = "warning"
	}
	return st
}

func (e *SLOEvaluator) maybeAlert(st SLOStatus) {
	if st.Severity == "" {
		return
	}
	key := st.Name + ":" + st.Severity
	now := e.now()
	e.alertMu.Lock()
	last, ok := e.lastAlerts[key]
	if ok && now.Sub(last) < e.cfg.MinInterval {
		e.alertMu.Unlock()
		return
	}
	e.lastAlerts[key] = now
	e.alertMu.Unlock()

	e.log.Warn("SLO burn rate exceeded",
		"slo", st.Name,
		"severity", st.Severity,
		"sli", st.SLI,
		"target", st.Target,
		"burn_rate", st.BurnRate,
		"window", e.cfg.Window.String(),
	)
}
