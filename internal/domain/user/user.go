package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`

	Level      int   `gorm:"column:level;not null;default:1" json:"level"`
	Experience int64 `gorm:"column:experience;not null;default:0" json:"experience"`

	// Streak snapshot. Derived from activity sources on every resync and never
	// read back as an input to the computation.
	CurrentStreak       int        `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	LongestStreak       int        `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	TotalActiveDays     int        `gorm:"column:total_active_days;not null;default:0" json:"total_active_days"`
	StatsRecalculatedAt *time.Time `gorm:"column:stats_recalculated_at" json:"stats_recalculated_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
