package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var RewardLedgerAggregateContract = Contract{
	Name:      "Progression.RewardLedgerAggregate",
	Invariant: "user.experience equals the sum of the user's reward_grant rows",
}

// RewardLedgerAggregate owns experience grants.
//
// Failures return *Error with CodeValidation, CodeUserNotFound,
// CodeDataUnavailable or CodeInternal.
type RewardLedgerAggregate interface {
	Aggregate

	Grant(ctx context.Context, in GrantRewardInput) (GrantRewardResult, error)
}

type GrantRewardInput struct {
	UserID uuid.UUID
	Amount int
	Reason string
	// NodeID is set when the grant comes from a skill unlock.
	NodeID *uuid.UUID
}

type GrantRewardResult struct {
	RewardGrantID uuid.UUID
	Amount        int
	GrantedAt     time.Time
}
