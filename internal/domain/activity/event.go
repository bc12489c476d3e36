package activity

import "time"

// Event is the reduced shape every activity subsystem is folded into before
// streak aggregation.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	SourceTag string    `json:"source_tag"`
}

const (
	SourceTrainingSession = "training_session"
	SourceDailyGoal       = "daily_goal"
)
