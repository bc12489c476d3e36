package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/progression-backend/internal/clients/redis"
	"github.com/yungbote/progression-backend/internal/modules/progression/streaks"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

// =========================
// Progress notifier
// =========================

// ProgressNotifier fans progress changes out to other processes. Every method
// is best-effort: publish failures are logged and counted, never returned to
// the request that triggered them.
type ProgressNotifier interface {
	SkillUnlocked(ctx context.Context, userID uuid.UUID, payload SkillUnlockedPayload)
	StatsUpdated(ctx context.Context, userID uuid.UUID, stats streaks.StreakData)
	CatalogChanged(ctx context.Context) error
}

type SkillUnlockedPayload struct {
	Skill      SkillSummary `json:"skill"`
	NextSkills []NextSkill  `json:"next_skills"`
}

type progressNotifier struct {
	bus     redis.ProgressBus
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewProgressNotifier returns a notifier over bus. A nil bus yields a
// notifier that drops every event.
func NewProgressNotifier(bus redis.ProgressBus, log *logger.Logger, metrics *observability.Metrics) ProgressNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &progressNotifier{
		bus:     bus,
		log:     log.With("service", "ProgressNotifier"),
		metrics: metrics,
	}
}

func (n *progressNotifier) SkillUnlocked(ctx context.Context, userID uuid.UUID, payload SkillUnlockedPayload) {
	if n == nil || userID == uuid.Nil {
		return
	}
	_ = n.publish(ctx, redis.EventSkillUnlocked, userID, payload)
}

func (n *progressNotifier) StatsUpdated(ctx context.Context, userID uuid.UUID, stats streaks.StreakData) {
	if n == nil || userID == uuid.Nil {
		return
	}
	_ = n.publish(ctx, redis.EventStatsUpdated, userID, stats)
}

// CatalogChanged tells running servers to drop their cached skill graph.
func (n *progressNotifier) CatalogChanged(ctx context.Context) error {
	if n == nil {
		return nil
	}
	return n.publish(ctx, redis.EventCatalogChanged, uuid.Nil, nil)
}

func (n *progressNotifier) publish(ctx context.Context, eventType string, userID uuid.UUID, payload any) error {
	if n.bus == nil {
		n.metrics.IncNotification(eventType, "skipped")
		return nil
	}
	ev, err := redis.NewProgressEvent(eventType, userID, payload)
	if err != nil {
		n.metrics.IncNotification(eventType, "error")
		n.log.Warn("build progress event failed", "event", eventType, "error", err)
		return err
	}
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.metrics.IncNotification(eventType, "error")
		n.log.Warn("publish progress event failed", "event", eventType, "user_id", userID, "error", err)
		return err
	}
	n.metrics.IncNotification(eventType, "ok")
	return nil
}
