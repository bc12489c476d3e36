package activity

import (
	"time"

	"github.com/google/uuid"
)

// RewardGrant is an append-only experience ledger entry.
type RewardGrant struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	Amount    int        `gorm:"column:amount;not null" json:"amount"`
	Reason    string     `gorm:"column:reason;not null" json:"reason"`
	NodeID    *uuid.UUID `gorm:"type:uuid;column:node_id;index" json:"node_id,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

func (RewardGrant) TableName() string { return "reward_grant" }
