package activity

import (
	"time"

	"github.com/google/uuid"
)

type UserAchievement struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_user_achievement_key,priority:1" json:"user_id"`
	AchievementKey string    `gorm:"column:achievement_key;not null;uniqueIndex:idx_user_achievement_key,priority:2" json:"achievement_key"`
	UnlockedAt     time.Time `gorm:"column:unlocked_at;not null" json:"unlocked_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (UserAchievement) TableName() string { return "user_achievement" }
