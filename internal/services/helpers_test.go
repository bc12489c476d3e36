package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/progression-backend/internal/clients/redis"
	dataagg "github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/data/repos/repotest"
	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/modules/progression/conditions"
	"github.com/yungbote/progression-backend/internal/modules/progression/skillgraph"
	"github.com/yungbote/progression-backend/internal/modules/progression/streaks"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type spyNotifier struct {
	mu       sync.Mutex
	unlocked []SkillUnlockedPayload
	stats    []streaks.StreakData
	catalog  int
}

func (s *spyNotifier) SkillUnlocked(_ context.Context, _ uuid.UUID, p SkillUnlockedPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked = append(s.unlocked, p)
}

func (s *spyNotifier) StatsUpdated(_ context.Context, _ uuid.UUID, d streaks.StreakData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = append(s.stats, d)
}

func (s *spyNotifier) CatalogChanged(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog++
	return nil
}

type spyRecorder struct {
	mu   sync.Mutex
	rows []*types.UserUnlock
}

func (s *spyRecorder) RecordUnlock(_ context.Context, row *types.UserUnlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []redis.ProgressEvent
	err    error
}

func (b *fakeBus) Publish(_ context.Context, ev redis.ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBus) StartForwarder(context.Context, func(redis.ProgressEvent)) error { return nil }
func (b *fakeBus) Close() error { return nil }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type unlockFixture struct {
	mem      *repotest.Memory
	notifier *spyNotifier
	mirror   *spyRecorder
	deps     UnlockServiceDeps
}

func newUnlockFixture() *unlockFixture {
	mem := repotest.NewMemory()
	ledger := dataagg.NewRewardLedgerAggregate(dataagg.RewardLedgerAggregateDeps{
		Base:   dataagg.BaseDeps{Runner: mem.TxRunner()},
		Grants: mem.Rewards(),
		Users:  mem.Users(),
	})
	f := &unlockFixture{mem: mem, notifier: &spyNotifier{}, mirror: &spyRecorder{}}
	f.deps = UnlockServiceDeps{
		Graphs: skillgraph.NewCache(skillgraph.RepoLoader(mem.SkillNodes(), mem.SkillEdges()), logger.Nop(), skillgraph.CacheConfig{}),
		Evaluator: conditions.NewFromRepos(conditions.RepoDeps{
			Users:        mem.Users(),
			Sessions:     mem.Sessions(),
			Achievements: mem.Achievements(),
			Goals:        mem.Goals(),
		}, logger.Nop()),
		Conditions: mem.Conditions(),
		Unlocks:    mem.Unlocks(),
		Rewards:    NewRewardService(logger.Nop(), ledger),
		Notifier:   f.notifier,
		Mirror:     f.mirror,
	}
	return f
}

func (f *unlockFixture) service() UnlockService {
	return NewUnlockService(logger.Nop(), f.deps)
}

func cond(t types.ConditionType, target int) *types.UnlockCondition {
	return &types.UnlockCondition{Type: t, TargetValue: target}
}
