package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/data/graph"
	"github.com/yungbote/progression-backend/internal/modules/progression/catalog"
	"github.com/yungbote/progression-backend/internal/modules/progression/conditions"
	"github.com/yungbote/progression-backend/internal/modules/progression/skillgraph"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/logger"
	"github.com/yungbote/progression-backend/internal/services"
)

type Services struct {
	Graphs   *skillgraph.Cache
	Mirror   *graph.SkillGraphMirror
	Notifier services.ProgressNotifier
	Rewards  services.RewardService
	Unlock   services.UnlockService
	Stats    services.StatsService
	Activity services.ActivityService
	Seeder   *catalog.Seeder
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	runner := aggregates.NewGormTxRunner(db)
	ledger := aggregates.NewRewardLedgerAggregate(aggregates.RewardLedgerAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: runner,
			Hooks:  aggregates.NewObservabilityHooks(metrics),
		},
		Grants: r.RewardGrant,
		Users:  r.User,
	})

	graphs := skillgraph.NewCache(skillgraph.RepoLoader(r.SkillNode, r.SkillEdge), log, skillgraph.CacheConfig{
		TTL:     cfg.GraphCacheTTL,
		Metrics: metrics,
	})
	mirror := graph.NewSkillGraphMirror(c.Neo4j, log)
	notifier := services.NewProgressNotifier(c.Bus, log, metrics)
	rewards := services.NewRewardService(log, ledger)

	evaluator := conditions.NewFromRepos(conditions.RepoDeps{
		Users:        r.User,
		Sessions:     r.Session,
		Achievements: r.Achievement,
		Goals:        r.DailyGoal,
	}, log)

	unlock := services.NewUnlockService(log, services.UnlockServiceDeps{
		Graphs:      graphs,
		Evaluator:   evaluator,
		Conditions:  r.Condition,
		Unlocks:     r.Unlock,
		Rewards:     rewards,
		Notifier:    notifier,
		Mirror:      mirror,
		Metrics:     metrics,
		ReadTimeout: cfg.ReadTimeout,
	})

	stats := services.NewStatsService(log, services.StatsServiceDeps{
		Users: r.User,
		Sources: []services.ActivityEventSource{
			services.NewTrainingSessionSource(r.Session),
			services.NewDailyGoalSource(r.DailyGoal),
		},
		Notifier:    notifier,
		Metrics:     metrics,
		ReadTimeout: cfg.ReadTimeout,
	})

	activity := services.NewActivityService(log, r.User, r.Session, r.DailyGoal, r.Achievement, stats, nil)

	seeder := catalog.NewSeeder(catalog.SeederDeps{
		Tx:         runner,
		Nodes:      r.SkillNode,
		Edges:      r.SkillEdge,
		Conditions: r.Condition,
		Mirror:     mirror,
		Notifier:   notifier,
	}, log)

	return Services{
		Graphs:   graphs,
		Mirror:   mirror,
		Notifier: notifier,
		Rewards:  rewards,
		Unlock:   unlock,
		Stats:    stats,
		Activity: activity,
		Seeder:   seeder,
	}
}
