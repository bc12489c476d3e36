// Package conditions measures a user's progress toward unlock conditions.
package conditions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dataagg "github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type Progress struct {
	CurrentProgress int  `json:"current_progress"`
	IsMet           bool `json:"is_met"`
}

// Counter yields the current aggregate value for one condition type.
type Counter interface {
	Count(ctx context.Context, userID uuid.UUID) (int, error)
}

type CounterFunc func(ctx context.Context, userID uuid.UUID) (int, error)

func (f CounterFunc) Count(ctx context.Context, userID uuid.UUID) (int, error) { return f(ctx, userID) }

type Evaluator interface {
	Evaluate(ctx context.Context, userID uuid.UUID, cond *types.UnlockCondition) (Progress, error)
	// EvaluateAll keeps the order of conds in its result.
	EvaluateAll(ctx context.Context, userID uuid.UUID, conds []*types.UnlockCondition) ([]Result, error)
}

type Result struct {
	Condition *types.UnlockCondition
	Progress  Progress
}

type evaluator struct {
	counters map[types.ConditionType]Counter
	log      *logger.Logger
}

// New builds an evaluator from an explicit dispatch table. Types absent from
// the table fall through to the unknown-type arm.
func New(counters map[types.ConditionType]Counter, baseLog *logger.Logger) Evaluator {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	table := make(map[types.ConditionType]Counter, len(counters))
	for t, c := range counters {
		if c != nil {
			table[t] = c
		}
	}
	return &evaluator{counters: table, log: baseLog.With("component", "ConditionEvaluator")}
}

type RepoDeps struct {
	Users        repos.UserRepo
	Sessions     repos.TrainingSessionRepo
	Achievements repos.UserAchievementRepo
	Goals        repos.DailyGoalRepo
}

// NewFromRepos wires the four built-in condition types to their repos.
func NewFromRepos(deps RepoDeps, baseLog *logger.Logger) Evaluator {
	return New(map[types.ConditionType]Counter{
		types.ConditionLevel: CounterFunc(func(ctx context.Context, userID uuid.UUID) (int, error) {
			level, err := deps.Users.GetLevel(dbctx.Context{Ctx: ctx}, userID)
			return level, dataagg.UserLookup("conditions.Level", err)
		}),
		types.ConditionCourse: countInt64(func(ctx context.Context, userID uuid.UUID) (int64, error) {
			return deps.Sessions.CountCompleted(dbctx.Context{Ctx: ctx}, userID)
		}),
		types.ConditionAchievement: countInt64(func(ctx context.Context, userID uuid.UUID) (int64, error) {
			return deps.Achievements.CountUnlocked(dbctx.Context{Ctx: ctx}, userID)
		}),
		types.ConditionDailyGoal: countInt64(func(ctx context.Context, userID uuid.UUID) (int64, error) {
			return deps.Goals.CountCompleted(dbctx.Context{Ctx: ctx}, userID)
		}),
	}, baseLog)
}

func countInt64(fn func(ctx context.Context, userID uuid.UUID) (int64, error)) Counter {
	return CounterFunc(func(ctx context.Context, userID uuid.UUID) (int, error) {
		n, err := fn(ctx, userID)
		return int(n), err
	})
}

func (e *evaluator) Evaluate(ctx context.Context, userID uuid.UUID, cond *types.UnlockCondition) (Progress, error) {
	const op = "conditions.Evaluate"
	if cond == nil {
		return Progress{}, domainagg.NewError(domainagg.CodeValidation, op, "nil condition", nil)
	}
	counter, ok := e.counters[cond.Type]
	if !ok {
		e.log.Warn("unknown condition type; treating as unmet",
			"condition_type", string(cond.Type),
			"condition_id", cond.ID,
			"node_id", cond.NodeID,
		)
		return Progress{}, nil
	}
	current, err := counter.Count(ctx, userID)
	if err != nil {
		return Progress{}, dataagg.Unavailable(op, fmt.Errorf("count %s: %w", cond.Type, err))
	}
	return Progress{CurrentProgress: current, IsMet: current >= cond.TargetValue}, nil
}

func (e *evaluator) EvaluateAll(ctx context.Context, userID uuid.UUID, conds []*types.UnlockCondition) ([]Result, error) {
	out := make([]Result, len(conds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range conds {
		i, c := i, c
		g.Go(func() error {
			p, err := e.Evaluate(gctx, userID, c)
			if err != nil {
				return err
			}
			out[i] = Result{Condition: c, Progress: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

var defaultTemplates = map[types.ConditionType]string{
	types.ConditionLevel:       "Reach level {target} (currently {current})",
	types.ConditionCourse:      "Complete {target} training sessions ({current} done)",
	types.ConditionAchievement: "Earn {target} achievements ({current} earned)",
	types.ConditionDailyGoal:   "Complete {target} daily goals ({current} done)",
}

// Describe renders the condition's description with {target} and {current}
// substituted. Empty descriptions fall back to a per-type template.
func Describe(cond *types.UnlockCondition, p Progress) string {
	if cond == nil {
		return ""
	}
	tmpl := strings.TrimSpace(cond.Description)
	if tmpl == "" {
		tmpl = defaultTemplates[cond.Type]
	}
	if tmpl == "" {
		tmpl = string(cond.Type) + " {current}/{target}"
	}
	return strings.NewReplacer(
		"{target}", strconv.Itoa(cond.TargetValue),
		"{current}", strconv.Itoa(p.CurrentProgress),
	).Replace(tmpl)
}
