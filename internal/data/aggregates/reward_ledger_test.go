package aggregates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/progression-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/progression-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

type fakeGrants struct {
	rows []*types.RewardGrant
	err  error
}

func (f *fakeGrants) Create(_ dbctx.Context, row *types.RewardGrant) error {
	if f.err != nil {
		return f.err
	}
	row.ID = uuid.New()
	row.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeGrants) SumByUser(_ dbctx.Context, userID uuid.UUID) (int64, error) {
	var total int64
	for _, r := range f.rows {
		if r.UserID == userID {
			total += int64(r.Amount)
		}
	}
	return total, nil
}

type fakeUsers struct {
	repos.UserRepo
	xp  map[uuid.UUID]int
	err error
}

func (f *fakeUsers) AddExperience(_ dbctx.Context, userID uuid.UUID, amount int) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.xp[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.xp[userID] += amount
	return nil
}

func TestRewardLedgerGrantAppendsAndIncrements(t *testing.T) {
	userID := uuid.New()
	nodeID := uuid.New()
	grants := &fakeGrants{}
	users := &fakeUsers{xp: map[uuid.UUID]int{userID: 10}}
	hooks := &aggtestutil.HooksRecorder{}
	runner := &aggtestutil.InjectedTxRunner{}

	agg := aggregates.NewRewardLedgerAggregate(aggregates.RewardLedgerAggregateDeps{
		Base:   aggregates.BaseDeps{Runner: runner, Hooks: hooks},
		Grants: grants,
		Users:  users,
	})

	out, err := agg.Grant(context.Background(), domainagg.GrantRewardInput{
		UserID: userID,
		Amount: 50,
		Reason: "skill_unlock",
		NodeID: &nodeID,
	})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if out.Amount != 50 || out.RewardGrantID == uuid.Nil {
		t.Fatalf("unexpected result: %+v", out)
	}
	if users.xp[userID] != 60 {
		t.Fatalf("experience: want=60 got=%d", users.xp[userID])
	}
	if len(grants.rows) != 1 || grants.rows[0].NodeID == nil || *grants.rows[0].NodeID != nodeID {
		t.Fatalf("ledger rows: %+v", grants.rows)
	}
	if runner.CommitCalls != 1 || runner.RollbackCalls != 0 {
		t.Fatalf("tx calls: commit=%d rollback=%d", runner.CommitCalls, runner.RollbackCalls)
	}
	if got := hooks.Count(aggtestutil.HookOperation, "success"); got != 1 {
		t.Fatalf("hooks: %+v", hooks.Events())
	}
	if got := agg.Contract().Name; got != domainagg.RewardLedgerAggregateContract.Name {
		t.Fatalf("contract name: %q", got)
	}
}

func TestRewardLedgerGrantRollsBackOnExperienceFailure(t *testing.T) {
	grants := &fakeGrants{}
	users := &fakeUsers{xp: map[uuid.UUID]int{}}
	runner := &aggtestutil.InjectedTxRunner{}

	agg := aggregates.NewRewardLedgerAggregate(aggregates.RewardLedgerAggregateDeps{
		Base:   aggregates.BaseDeps{Runner: runner},
		Grants: grants,
		Users:  users,
	})

	_, err := agg.Grant(context.Background(), domainagg.GrantRewardInput{UserID: uuid.New(), Amount: 5})
	if !domainagg.IsCode(err, domainagg.CodeUserNotFound) {
		t.Fatalf("expected user_not_found, got=%v", err)
	}
	if runner.RollbackCalls != 1 || runner.CommitCalls != 0 {
		t.Fatalf("tx calls: commit=%d rollback=%d", runner.CommitCalls, runner.RollbackCalls)
	}
}

func TestRewardLedgerGrantValidation(t *testing.T) {
	agg := aggregates.NewRewardLedgerAggregate(aggregates.RewardLedgerAggregateDeps{
		Base:   aggregates.BaseDeps{Runner: &aggtestutil.InjectedTxRunner{}},
		Grants: &fakeGrants{},
		Users:  &fakeUsers{xp: map[uuid.UUID]int{}},
	})
	cases := []domainagg.GrantRewardInput{
		{Amount: 5},
		{UserID: uuid.New(), Amount: 0},
		{UserID: uuid.New(), Amount: -3},
	}
	for _, in := range cases {
		if _, err := agg.Grant(context.Background(), in); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("input %+v: expected validation, got=%v", in, err)
		}
	}
}

func TestRewardLedgerGrantMapsUnavailable(t *testing.T) {
	agg := aggregates.NewRewardLedgerAggregate(aggregates.RewardLedgerAggregateDeps{
		Base:   aggregates.BaseDeps{Runner: &aggtestutil.InjectedTxRunner{FailBegin: errors.New("dial tcp: connection refused")}},
		Grants: &fakeGrants{},
		Users:  &fakeUsers{xp: map[uuid.UUID]int{}},
	})
	_, err := agg.Grant(context.Background(), domainagg.GrantRewardInput{UserID: uuid.New(), Amount: 5})
	if !domainagg.IsRetryable(err) {
		t.Fatalf("expected retryable, got=%v", err)
	}
}
