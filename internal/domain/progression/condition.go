package progression

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConditionType names the aggregate an UnlockCondition measures. Stored as a
// string so catalogs written for newer builds still load.
type ConditionType string

const (
	ConditionLevel       ConditionType = "LEVEL"
	ConditionCourse      ConditionType = "COURSE"
	ConditionAchievement ConditionType = "ACHIEVEMENT"
	ConditionDailyGoal   ConditionType = "DAILY_GOAL"
)

// KnownConditionTypes lists the types this build can evaluate.
var KnownConditionTypes = []ConditionType{ConditionLevel, ConditionCourse, ConditionAchievement, ConditionDailyGoal}

// NormalizeConditionType upper-cases and trims raw input.
func NormalizeConditionType(raw string) ConditionType {
	return ConditionType(strings.ToUpper(strings.TrimSpace(raw)))
}

func (t ConditionType) Known() bool {
	for _, k := range KnownConditionTypes {
		if t == k {
			return true
		}
	}
	return false
}

type UnlockCondition struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	NodeID      uuid.UUID     `gorm:"type:uuid;column:node_id;not null;index;uniqueIndex:idx_unlock_condition_node_type,priority:1" json:"node_id"`
	Type        ConditionType `gorm:"column:type;not null;uniqueIndex:idx_unlock_condition_node_type,priority:2" json:"type"`
	TargetValue int           `gorm:"column:target_value;not null" json:"target_value"`
	// Description may reference {target} and {current}.
	Description string    `gorm:"column:description" json:"description"`
	SortIndex   int       `gorm:"column:sort_index;not null;default:0" json:"sort_index"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (UnlockCondition) TableName() string { return "unlock_condition" }
