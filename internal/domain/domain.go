package domain

import (
	"github.com/yungbote/progression-backend/internal/domain/activity"
	"github.com/yungbote/progression-backend/internal/domain/progression"
	"github.com/yungbote/progression-backend/internal/domain/user"
)

type User = user.User

type SkillNode = progression.SkillNode
type SkillEdge = progression.SkillEdge
type UnlockCondition = progression.UnlockCondition
type UserUnlock = progression.UserUnlock
type ConditionType = progression.ConditionType

const (
	ConditionLevel       = progression.ConditionLevel
	ConditionCourse      = progression.ConditionCourse
	ConditionAchievement = progression.ConditionAchievement
	ConditionDailyGoal   = progression.ConditionDailyGoal
)

type TrainingSession = activity.TrainingSession
type DailyGoal = activity.DailyGoal
type UserAchievement = activity.UserAchievement
type RewardGrant = activity.RewardGrant
type ActivityEvent = activity.Event

const (
	SourceTrainingSession = activity.SourceTrainingSession
	SourceDailyGoal       = activity.SourceDailyGoal
)

// Models returns every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&SkillNode{},
		&SkillEdge{},
		&UnlockCondition{},
		&UserUnlock{},
		&TrainingSession{},
		&DailyGoal{},
		&UserAchievement{},
		&RewardGrant{},
	}
}
