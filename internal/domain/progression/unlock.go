package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserUnlock is an append-only fact: its presence means the user has the node.
// The (user_id, node_id) unique index is the only guard against double unlocks.
type UserUnlock struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;column:user_id;not null;index;uniqueIndex:idx_user_unlock_user_node,priority:1" json:"user_id"`
	NodeID     uuid.UUID      `gorm:"type:uuid;column:node_id;not null;index;uniqueIndex:idx_user_unlock_user_node,priority:2" json:"node_id"`
	UnlockedAt time.Time      `gorm:"column:unlocked_at;not null" json:"unlocked_at"`
	Context    datatypes.JSON `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (UserUnlock) TableName() string { return "user_unlock" }
