package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/progression-backend/internal/data/aggregates"
)

const (
	HookOperation = "operation"
	HookConflict  = "conflict"
	HookRetry     = "retry"
)

// HookEvent is one signal seen by a HooksRecorder. Status is empty for
// conflicts and retries.
type HookEvent struct {
	Kind     string
	Op       string
	Status   string
	Duration time.Duration
}

// HooksRecorder keeps aggregate hook signals in arrival order.
type HooksRecorder struct {
	mu     sync.Mutex
	events []HookEvent
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.add(HookEvent{Kind: HookOperation, Op: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) { h.add(HookEvent{Kind: HookConflict, Op: name}) }

func (h *HooksRecorder) IncRetry(name string) { h.add(HookEvent{Kind: HookRetry, Op: name}) }

func (h *HooksRecorder) add(ev HookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *HooksRecorder) Events() []HookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HookEvent(nil), h.events...)
}

// Count returns how many events of kind were seen. For operations, a
// non-empty status narrows the count to that status.
func (h *HooksRecorder) Count(kind, status string) int {
	n := 0
	for _, ev := range h.Events() {
		if ev.Kind != kind {
			continue
		}
		if status != "" && ev.Status != status {
			continue
		}
		n++
	}
	return n
}
