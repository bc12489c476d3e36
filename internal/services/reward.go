package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

const RewardReasonSkillUnlock = "skill_unlock"

type RewardGrant struct {
	ID        uuid.UUID `json:"id"`
	Amount    int       `json:"amount"`
	GrantedAt time.Time `json:"granted_at"`
}

type RewardService interface {
	Grant(ctx context.Context, userID uuid.UUID, amount int, reason string, nodeID *uuid.UUID) (*RewardGrant, error)
}

type rewardService struct {
	log    *logger.Logger
	ledger domainagg.RewardLedgerAggregate
}

func NewRewardService(log *logger.Logger, ledger domainagg.RewardLedgerAggregate) RewardService {
	if log == nil {
		log = logger.Nop()
	}
	return &rewardService{log: log.With("service", "RewardService"), ledger: ledger}
}

func (s *rewardService) Grant(ctx context.Context, userID uuid.UUID, amount int, reason string, nodeID *uuid.UUID) (*RewardGrant, error) {
	if s.ledger == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "RewardService.Grant", "reward ledger not configured", nil)
	}
	res, err := s.ledger.Grant(ctx, domainagg.GrantRewardInput{
		UserID: userID,
		Amount: amount,
		Reason: reason,
		NodeID: nodeID,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("reward granted", "user_id", userID, "amount", res.Amount, "reason", reason)
	return &RewardGrant{ID: res.RewardGrantID, Amount: res.Amount, GrantedAt: res.GrantedAt}, nil
}
