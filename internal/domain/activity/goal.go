package activity

import (
	"time"

	"github.com/google/uuid"
)

// DailyGoal is keyed by (user, title, UTC day) so completing the same goal
// twice on one day is a no-op.
type DailyGoal struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_daily_goal_user_title_date,priority:1" json:"user_id"`
	Title       string     `gorm:"column:title;not null;uniqueIndex:idx_daily_goal_user_title_date,priority:2" json:"title"`
	GoalDate    string     `gorm:"column:goal_date;not null;uniqueIndex:idx_daily_goal_user_title_date,priority:3" json:"goal_date"` // YYYY-MM-DD, UTC
	CompletedAt *time.Time `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (DailyGoal) TableName() string { return "daily_goal" }
