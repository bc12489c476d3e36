package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SkillNode is a stage in the unlock graph. Seeded from the catalog and
// treated as read-only configuration afterwards.
type SkillNode struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Key         string         `gorm:"column:key;not null;uniqueIndex" json:"key"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	SortIndex   int            `gorm:"column:sort_index;not null;default:0" json:"sort_index"`
	RewardXP    int            `gorm:"column:reward_xp;not null;default:0" json:"reward_xp"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (SkillNode) TableName() string { return "skill_node" }

// SkillEdge means Source must be unlocked before Target is eligible.
type SkillEdge struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceNodeID uuid.UUID `gorm:"type:uuid;column:source_node_id;not null;index;uniqueIndex:idx_skill_edge_pair,priority:1" json:"source_node_id"`
	TargetNodeID uuid.UUID `gorm:"type:uuid;column:target_node_id;not null;index;uniqueIndex:idx_skill_edge_pair,priority:2" json:"target_node_id"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (SkillEdge) TableName() string { return "skill_edge" }
