package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

type RewardLedgerAggregateDeps struct {
	Base BaseDeps

	Grants repos.RewardGrantRepo
	Users  repos.UserRepo
}

type rewardLedgerAggregate struct {
	deps RewardLedgerAggregateDeps
}

func NewRewardLedgerAggregate(deps RewardLedgerAggregateDeps) domainagg.RewardLedgerAggregate {
	deps.Base = deps.Base.withDefaults()
	return &rewardLedgerAggregate{deps: deps}
}

func (a *rewardLedgerAggregate) Contract() domainagg.Contract {
	return domainagg.RewardLedgerAggregateContract
}

func (a *rewardLedgerAggregate) Grant(ctx context.Context, in domainagg.GrantRewardInput) (domainagg.GrantRewardResult, error) {
	const op = "Progression.RewardLedger.Grant"
	var out domainagg.GrantRewardResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.Amount <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "amount must be positive", nil)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "unspecified"
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row := &types.RewardGrant{
			UserID: in.UserID,
			Amount: in.Amount,
			Reason: reason,
			NodeID: in.NodeID,
		}
		if err := a.deps.Grants.Create(dbc, row); err != nil {
			return err
		}
		if err := a.deps.Users.AddExperience(dbc, in.UserID, in.Amount); err != nil {
			return UserLookup(op, err)
		}
		out = domainagg.GrantRewardResult{
			RewardGrantID: row.ID,
			Amount:        row.Amount,
			GrantedAt:     row.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return domainagg.GrantRewardResult{}, err
	}
	if out.GrantedAt.IsZero() {
		out.GrantedAt = time.Now().UTC()
	}
	return out, nil
}
