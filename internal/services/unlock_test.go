package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

func TestAttemptUnlockIsIdempotent(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("basics", 0)
	svc := f.service()
	ctx := context.Background()

	first, err := svc.AttemptUnlock(ctx, u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if !first.Success || !first.Unlocked || first.AlreadyUnlocked {
		t.Fatalf("first attempt should unlock: %+v", first)
	}
	second, err := svc.AttemptUnlock(ctx, u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if !second.Success || !second.AlreadyUnlocked || second.Unlocked {
		t.Fatalf("second attempt should report already unlocked: %+v", second)
	}
	if !first.UnlockedAt.Equal(*second.UnlockedAt) {
		t.Fatalf("unlocked_at changed: %v vs %v", first.UnlockedAt, second.UnlockedAt)
	}
	if got := f.mem.UnlockCount(u.ID); got != 1 {
		t.Fatalf("expected 1 unlock row, got %d", got)
	}
}

func TestAttemptUnlockRequiresEveryCondition(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("gated", 0, cond(types.ConditionLevel, 3), cond(types.ConditionCourse, 2))
	svc := f.service()
	ctx := context.Background()

	res, err := svc.AttemptUnlock(ctx, u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("AttemptUnlock: %v", err)
	}
	if res.Success || res.Error != ErrCodeConditionsNotMet || len(res.Details.UnmetConditions) != 2 {
		t.Fatalf("expected two unmet conditions: %+v", res)
	}

	f.mem.SetLevel(u.ID, 3)
	res, err = svc.AttemptUnlock(ctx, u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("AttemptUnlock: %v", err)
	}
	if res.Success || len(res.Details.UnmetConditions) != 1 || res.Details.UnmetConditions[0].Type != types.ConditionCourse {
		t.Fatalf("expected only COURSE unmet: %+v", res.Details)
	}
	if f.mem.UnlockCount(u.ID) != 0 {
		t.Fatalf("no unlock may be written while a condition is unmet")
	}

	f.mem.AddCompletedSession(u.ID, time.Now())
	f.mem.AddCompletedSession(u.ID, time.Now())
	res, err = svc.AttemptUnlock(ctx, u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("AttemptUnlock: %v", err)
	}
	if !res.Success || !res.Unlocked {
		t.Fatalf("expected unlock once both conditions hold: %+v", res)
	}
}

func TestAttemptUnlockWithoutUserRowIsNotAnUnknownSkill(t *testing.T) {
	f := newUnlockFixture()
	n := f.mem.AddNode("gated", 50, cond(types.ConditionLevel, 2))
	userID := uuid.New()

	res, err := f.service().AttemptUnlock(context.Background(), userID, n.ID, nil)
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
	if !domainagg.IsCode(err, domainagg.CodeUserNotFound) {
		t.Fatalf("expected user_not_found, got %v", err)
	}
	if domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing user must not read as an unknown skill: %v", err)
	}
	if got := f.mem.UnlockCount(userID); got != 0 {
		t.Fatalf("expected no unlock rows, got %d", got)
	}
}

func TestAttemptUnlockGatesOnDirectPrerequisites(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(10)
	a := f.mem.AddNode("a", 0)
	b := f.mem.AddNode("b", 0)
	c := f.mem.AddNode("c", 0, cond(types.ConditionLevel, 1))
	f.mem.AddEdge(a, c)
	f.mem.AddEdge(b, c)
	svc := f.service()
	ctx := context.Background()

	if _, err := svc.AttemptUnlock(ctx, u.ID, a.ID, nil); err != nil {
		t.Fatalf("unlock a: %v", err)
	}
	res, err := svc.AttemptUnlock(ctx, u.ID, c.ID, nil)
	if err != nil {
		t.Fatalf("unlock c: %v", err)
	}
	if res.Success {
		t.Fatalf("c must stay locked while b is locked")
	}
	deps := res.Details.UnmetDependencies
	if len(deps) != 1 || deps[0].ID != b.ID || deps[0].Key != "b" {
		t.Fatalf("expected unmet dependency b, got %+v", deps)
	}
	if len(res.Details.UnmetConditions) != 0 {
		t.Fatalf("c's own conditions are met: %+v", res.Details.UnmetConditions)
	}
}

func TestAttemptUnlockReportsFrontier(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	a := f.mem.AddNode("a", 0)
	b := f.mem.AddNode("b", 0)
	d := f.mem.AddNode("d", 0)
	e := f.mem.AddNode("e", 0)
	f.mem.AddEdge(a, b)
	f.mem.AddEdge(a, d)
	f.mem.AddEdge(e, d)

	res, err := f.service().AttemptUnlock(context.Background(), u.ID, a.ID, nil)
	if err != nil {
		t.Fatalf("AttemptUnlock: %v", err)
	}
	got := map[uuid.UUID]bool{}
	for _, ns := range res.NextSkills {
		got[ns.ID] = ns.CanUnlock
	}
	if can, ok := got[b.ID]; !ok || !can {
		t.Fatalf("b should be unlockable next: %+v", res.NextSkills)
	}
	if can, ok := got[d.ID]; ok && can {
		t.Fatalf("d still needs e: %+v", res.NextSkills)
	}
	if len(f.notifier.unlocked) != 1 || len(f.notifier.unlocked[0].NextSkills) != len(res.NextSkills) {
		t.Fatalf("expected one unlock notification with the frontier, got %+v", f.notifier.unlocked)
	}
	if len(f.mirror.rows) != 1 || f.mirror.rows[0].NodeID != a.ID {
		t.Fatalf("expected unlock mirrored, got %+v", f.mirror.rows)
	}
}

func TestAttemptUnlockListsOnlyFailingConditions(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(2)
	x := f.mem.AddNode("x", 0, cond(types.ConditionLevel, 3), cond(types.ConditionCourse, 5))
	for i := 0; i < 7; i++ {
		f.mem.AddCompletedSession(u.ID, time.Now().Add(-time.Duration(i)*time.Hour))
	}

	res, err := f.service().AttemptUnlock(context.Background(), u.ID, x.ID, nil)
	if err != nil {
		t.Fatalf("AttemptUnlock: %v", err)
	}
	if res.Success || res.Error != ErrCodeConditionsNotMet || res.Message == "" {
		t.Fatalf("expected CONDITIONS_NOT_MET: %+v", res)
	}
	if len(res.Details.UnmetDependencies) != 0 {
		t.Fatalf("expected no unmet dependencies: %+v", res.Details.UnmetDependencies)
	}
	unmet := res.Details.UnmetConditions
	if len(unmet) != 1 || unmet[0].Type != types.ConditionLevel {
		t.Fatalf("expected only LEVEL unmet, got %+v", unmet)
	}
	if unmet[0].TargetValue != 3 || unmet[0].CurrentProgress != 2 {
		t.Fatalf("unexpected LEVEL progress: %+v", unmet[0])
	}
	if unmet[0].Description != "Reach level 3 (currently 2)" {
		t.Fatalf("unexpected description %q", unmet[0].Description)
	}
}

func TestAttemptUnlockConcurrentDuplicates(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("race", 25)
	svc := f.service()

	const workers = 8
	results := make([]*UnlockResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.AttemptUnlock(context.Background(), u.ID, n.ID, nil)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if !results[i].Success {
			t.Fatalf("worker %d got failure shape: %+v", i, results[i])
		}
		if results[i].Unlocked {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one creating call, got %d", created)
	}
	if got := f.mem.UnlockCount(u.ID); got != 1 {
		t.Fatalf("expected 1 unlock row, got %d", got)
	}
	if got := len(f.mem.RewardRows(u.ID)); got != 1 {
		t.Fatalf("reward must be granted once, got %d", got)
	}
}

// duplicateOnInsert simulates losing the insert race to another process: the
// row lands, but this writer sees a unique violation.
type duplicateOnInsert struct {
	repos.UserUnlockRepo
}

func (d duplicateOnInsert) CreateIfAbsent(dbc dbctx.Context, row *types.UserUnlock) (*types.UserUnlock, bool, error) {
	if _, _, err := d.UserUnlockRepo.CreateIfAbsent(dbc, row); err != nil {
		return nil, false, err
	}
	return nil, false, gorm.ErrDuplicatedKey
}

func TestAttemptUnlockLostRaceIsAlreadyUnlocked(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("race", 0)
	f.deps.Unlocks = duplicateOnInsert{f.mem.Unlocks()}

	res, err := f.service().AttemptUnlock(context.Background(), u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("lost race must not surface as an error: %v", err)
	}
	if !res.Success || !res.AlreadyUnlocked || res.UnlockedAt == nil {
		t.Fatalf("expected already_unlocked, got %+v", res)
	}
	if len(f.notifier.unlocked) != 0 {
		t.Fatalf("the losing writer must not notify")
	}
}

func TestAttemptUnlockUnknownNode(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	f.mem.AddNode("only", 0)

	_, err := f.service().AttemptUnlock(context.Background(), u.ID, uuid.New(), nil)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestAttemptUnlockGrantsReward(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("paid", 40)

	res, err := f.service().AttemptUnlock(context.Background(), u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("AttemptUnlock: %v", err)
	}
	if res.Rewards == nil || !res.Rewards.Granted || res.Rewards.Experience != 40 {
		t.Fatalf("expected granted reward, got %+v", res.Rewards)
	}
	if got := f.mem.User(u.ID).Experience; got != 40 {
		t.Fatalf("expected 40 experience, got %d", got)
	}
	rows := f.mem.RewardRows(u.ID)
	if len(rows) != 1 || rows[0].NodeID == nil || *rows[0].NodeID != n.ID || rows[0].Reason != RewardReasonSkillUnlock {
		t.Fatalf("unexpected ledger rows: %+v", rows)
	}
}

func TestAttemptUnlockRewardFailureKeepsUnlock(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("paid", 40)
	f.mem.Fail("RewardGrantRepo.Create", errors.New("ledger offline"))

	res, err := f.service().AttemptUnlock(context.Background(), u.ID, n.ID, nil)
	if err != nil {
		t.Fatalf("reward failure must not fail the unlock: %v", err)
	}
	if !res.Success || !res.Unlocked {
		t.Fatalf("expected unlock: %+v", res)
	}
	if res.Rewards == nil || res.Rewards.Granted || res.Rewards.Error == "" {
		t.Fatalf("expected reported reward failure, got %+v", res.Rewards)
	}
	if f.mem.UnlockCount(u.ID) != 1 {
		t.Fatalf("unlock row must survive the reward failure")
	}
}

func TestAttemptUnlockSlowReadFailsWithoutWrite(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(5)
	n := f.mem.AddNode("slow", 0, cond(types.ConditionLevel, 1))
	f.mem.Slow("UserRepo.GetLevel", 2*time.Second)
	f.deps.ReadTimeout = 20 * time.Millisecond

	_, err := f.service().AttemptUnlock(context.Background(), u.ID, n.ID, nil)
	if !domainagg.IsCode(err, domainagg.CodeDataUnavailable) {
		t.Fatalf("expected data_unavailable, got %v", err)
	}
	if calls := f.mem.Calls("UserUnlockRepo.CreateIfAbsent"); calls != 0 {
		t.Fatalf("no write may happen after a failed read, got %d calls", calls)
	}
}

func TestAttemptUnlockStoreFailureIsUnavailable(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("a", 0)
	f.mem.Fail("UserUnlockRepo.ListByUser", errors.New("connection refused"))

	_, err := f.service().AttemptUnlock(context.Background(), u.ID, n.ID, nil)
	if !domainagg.IsCode(err, domainagg.CodeDataUnavailable) {
		t.Fatalf("expected data_unavailable, got %v", err)
	}
}

func TestAttemptUnlockStoresContext(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	n := f.mem.AddNode("a", 0)

	if _, err := f.service().AttemptUnlock(context.Background(), u.ID, n.ID, map[string]any{"source": "tree"}); err != nil {
		t.Fatalf("AttemptUnlock: %v", err)
	}
	rows, err := f.mem.Unlocks().ListByUser(dbctx.Context{Ctx: context.Background()}, u.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByUser: %v (%d rows)", err, len(rows))
	}
	var got map[string]any
	if err := json.Unmarshal(rows[0].Context, &got); err != nil {
		t.Fatalf("context is not JSON: %v", err)
	}
	if got["source"] != "tree" {
		t.Fatalf("unexpected context %v", got)
	}
}

func TestGetNodeDetails(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	a := f.mem.AddNode("a", 0)
	b := f.mem.AddNode("b", 0, cond(types.ConditionLevel, 3))
	f.mem.AddEdge(a, b)
	svc := f.service()
	ctx := context.Background()

	missing, err := svc.GetNodeDetails(ctx, uuid.New(), u.ID)
	if err != nil || missing != nil {
		t.Fatalf("unknown node should be nil, nil; got %+v, %v", missing, err)
	}

	d, err := svc.GetNodeDetails(ctx, b.ID, u.ID)
	if err != nil {
		t.Fatalf("GetNodeDetails: %v", err)
	}
	if d.IsUnlocked || d.CanUnlock {
		t.Fatalf("b is locked and blocked: %+v", d)
	}
	if len(d.Prerequisites) != 1 || d.Prerequisites[0].Name != a.Name || d.Prerequisites[0].IsUnlocked {
		t.Fatalf("unexpected prerequisites: %+v", d.Prerequisites)
	}
	want := []string{"Requires " + a.Name, "Reach level 3 (currently 1)"}
	if len(d.BlockingReasons) != len(want) {
		t.Fatalf("blocking reasons = %v, want %v", d.BlockingReasons, want)
	}
	for i := range want {
		if d.BlockingReasons[i] != want[i] {
			t.Fatalf("blocking reasons = %v, want %v", d.BlockingReasons, want)
		}
	}
	if f.mem.Calls("UserUnlockRepo.CreateIfAbsent") != 0 {
		t.Fatalf("details must be read-only")
	}

	if _, err := svc.AttemptUnlock(ctx, u.ID, a.ID, nil); err != nil {
		t.Fatalf("unlock a: %v", err)
	}
	f.mem.SetLevel(u.ID, 3)
	d, err = svc.GetNodeDetails(ctx, b.ID, u.ID)
	if err != nil {
		t.Fatalf("GetNodeDetails: %v", err)
	}
	if !d.CanUnlock || len(d.BlockingReasons) != 0 {
		t.Fatalf("b should be unlockable now: %+v", d)
	}
}

func TestGetGraphWithProgress(t *testing.T) {
	f := newUnlockFixture()
	u := f.mem.AddUser(1)
	a := f.mem.AddNode("a", 0)
	b := f.mem.AddNode("b", 0, cond(types.ConditionLevel, 5))
	c := f.mem.AddNode("c", 0)
	f.mem.AddEdge(a, b)
	f.mem.AddEdge(b, c)
	svc := f.service()
	ctx := context.Background()

	if _, err := svc.AttemptUnlock(ctx, u.ID, a.ID, nil); err != nil {
		t.Fatalf("unlock a: %v", err)
	}
	g, err := svc.GetGraphWithProgress(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetGraphWithProgress: %v", err)
	}
	if g.Summary.TotalNodes != 3 || g.Summary.UnlockedCount != 1 || g.Summary.Percentage != 33.3 {
		t.Fatalf("unexpected summary: %+v", g.Summary)
	}
	if len(g.Summary.NextUnlockable) != 1 || g.Summary.NextUnlockable[0] != b.ID {
		t.Fatalf("only b is reachable: %+v", g.Summary.NextUnlockable)
	}
	if len(g.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(g.Edges))
	}
	byID := map[uuid.UUID]GraphNode{}
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	if n := byID[a.ID]; !n.IsUnlocked || n.UnlockedAt == nil || n.Conditions != nil {
		t.Fatalf("a should be unlocked without condition progress: %+v", n)
	}
	if n := byID[b.ID]; n.IsUnlocked || len(n.Conditions) != 1 || n.Conditions[0].CurrentProgress != 1 {
		t.Fatalf("b should carry its LEVEL progress: %+v", n)
	}
}
