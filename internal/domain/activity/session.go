package activity

import (
	"time"

	"github.com/google/uuid"
)

// TrainingSession is one timed practice run. Mode distinguishes training
// types ("focus", "memory", ...); only rows with CompletedAt count toward
// course completion and activity days.
type TrainingSession struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;column:user_id;not null;index:idx_training_session_user_completed,priority:1" json:"user_id"`
	Mode            string     `gorm:"column:mode;not null;default:'standard'" json:"mode"`
	StartedAt       time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at;index:idx_training_session_user_completed,priority:2" json:"completed_at,omitempty"`
	DurationSeconds int        `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	Score           float64    `gorm:"column:score;not null;default:0" json:"score"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (TrainingSession) TableName() string { return "training_session" }
