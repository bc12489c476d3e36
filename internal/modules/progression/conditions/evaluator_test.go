package conditions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

func fixed(n int) Counter {
	return CounterFunc(func(context.Context, uuid.UUID) (int, error) { return n, nil })
}

func failing(err error) Counter {
	return CounterFunc(func(context.Context, uuid.UUID) (int, error) { return 0, err })
}

func cond(t types.ConditionType, target int) *types.UnlockCondition {
	return &types.UnlockCondition{ID: uuid.New(), NodeID: uuid.New(), Type: t, TargetValue: target}
}

func TestEvaluateMetWhenCurrentReachesTarget(t *testing.T) {
	ev := New(map[types.ConditionType]Counter{
		types.ConditionLevel:  fixed(7),
		types.ConditionCourse: fixed(10),
	}, logger.Nop())

	cases := []struct {
		name string
		c    *types.UnlockCondition
		want Progress
	}{
		{"level below", cond(types.ConditionLevel, 10), Progress{CurrentProgress: 7, IsMet: false}},
		{"level equal", cond(types.ConditionLevel, 7), Progress{CurrentProgress: 7, IsMet: true}},
		{"course above", cond(types.ConditionCourse, 5), Progress{CurrentProgress: 10, IsMet: true}},
		{"zero target", cond(types.ConditionCourse, 0), Progress{CurrentProgress: 10, IsMet: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ev.Evaluate(context.Background(), uuid.New(), tc.c)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want=%+v got=%+v", tc.want, got)
			}
		})
	}
}

func TestEvaluateUnknownTypeFailsClosed(t *testing.T) {
	ev := New(map[types.ConditionType]Counter{types.ConditionLevel: fixed(99)}, logger.Nop())

	got, err := ev.Evaluate(context.Background(), uuid.New(), cond("STREAK", 0))
	if err != nil {
		t.Fatalf("unknown type should not error: %v", err)
	}
	if got.IsMet || got.CurrentProgress != 0 {
		t.Fatalf("unknown type should be unmet with zero progress, got=%+v", got)
	}
}

func TestEvaluateCollaboratorFailureIsDataUnavailable(t *testing.T) {
	ev := New(map[types.ConditionType]Counter{
		types.ConditionAchievement: failing(errors.New("dial tcp: connection refused")),
		types.ConditionDailyGoal:   failing(errors.New("boom")),
	}, logger.Nop())

	for _, ct := range []types.ConditionType{types.ConditionAchievement, types.ConditionDailyGoal} {
		_, err := ev.Evaluate(context.Background(), uuid.New(), cond(ct, 1))
		if !domainagg.IsCode(err, domainagg.CodeDataUnavailable) {
			t.Fatalf("%s: expected data_unavailable, got=%v", ct, err)
		}
	}
}

func TestEvaluateAllKeepsOrderAndFailsAsAWhole(t *testing.T) {
	ev := New(map[types.ConditionType]Counter{
		types.ConditionLevel:     fixed(3),
		types.ConditionCourse:    fixed(1),
		types.ConditionDailyGoal: fixed(4),
	}, logger.Nop())

	conds := []*types.UnlockCondition{
		cond(types.ConditionLevel, 5),
		cond(types.ConditionCourse, 1),
		cond(types.ConditionDailyGoal, 4),
	}
	res, err := ev.EvaluateAll(context.Background(), uuid.New(), conds)
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("len: want=3 got=%d", len(res))
	}
	for i := range conds {
		if res[i].Condition != conds[i] {
			t.Fatalf("result %d out of order", i)
		}
	}
	if res[0].Progress.IsMet || !res[1].Progress.IsMet || !res[2].Progress.IsMet {
		t.Fatalf("unexpected progress: %+v", res)
	}

	broken := New(map[types.ConditionType]Counter{
		types.ConditionLevel:  fixed(3),
		types.ConditionCourse: failing(errors.New("timeout")),
	}, logger.Nop())
	if _, err := broken.EvaluateAll(context.Background(), uuid.New(), conds[:2]); !domainagg.IsRetryable(err) {
		t.Fatalf("expected retryable failure, got=%v", err)
	}
}

func TestDescribe(t *testing.T) {
	c := cond(types.ConditionLevel, 10)
	c.Description = "Reach level {target}, you are at {current}"
	if got := Describe(c, Progress{CurrentProgress: 7}); got != "Reach level 10, you are at 7" {
		t.Fatalf("Describe: %q", got)
	}

	plain := cond(types.ConditionCourse, 5)
	if got := Describe(plain, Progress{CurrentProgress: 2}); got != "Complete 5 training sessions (2 done)" {
		t.Fatalf("Describe default: %q", got)
	}

	unknown := cond("STREAK", 3)
	if got := Describe(unknown, Progress{}); got != "STREAK 0/3" {
		t.Fatalf("Describe unknown: %q", got)
	}
}
