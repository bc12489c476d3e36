package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/progression-backend/internal/data/repos/activity"
	"github.com/yungbote/progression-backend/internal/data/repos/progression"
	"github.com/yungbote/progression-backend/internal/data/repos/user"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type StreakStats = user.StreakStats

type SkillNodeRepo = progression.SkillNodeRepo
type SkillEdgeRepo = progression.SkillEdgeRepo
type UnlockConditionRepo = progression.UnlockConditionRepo
type UserUnlockRepo = progression.UserUnlockRepo

type TrainingSessionRepo = activity.TrainingSessionRepo
type DailyGoalRepo = activity.DailyGoalRepo
type UserAchievementRepo = activity.UserAchievementRepo
type RewardGrantRepo = activity.RewardGrantRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewSkillNodeRepo(db *gorm.DB, baseLog *logger.Logger) SkillNodeRepo {
	return progression.NewSkillNodeRepo(db, baseLog)
}
func NewSkillEdgeRepo(db *gorm.DB, baseLog *logger.Logger) SkillEdgeRepo {
	return progression.NewSkillEdgeRepo(db, baseLog)
}
func NewUnlockConditionRepo(db *gorm.DB, baseLog *logger.Logger) UnlockConditionRepo {
	return progression.NewUnlockConditionRepo(db, baseLog)
}
func NewUserUnlockRepo(db *gorm.DB, baseLog *logger.Logger) UserUnlockRepo {
	return progression.NewUserUnlockRepo(db, baseLog)
}

func NewTrainingSessionRepo(db *gorm.DB, baseLog *logger.Logger) TrainingSessionRepo {
	return activity.NewTrainingSessionRepo(db, baseLog)
}
func NewDailyGoalRepo(db *gorm.DB, baseLog *logger.Logger) DailyGoalRepo {
	return activity.NewDailyGoalRepo(db, baseLog)
}
func NewUserAchievementRepo(db *gorm.DB, baseLog *logger.Logger) UserAchievementRepo {
	return activity.NewUserAchievementRepo(db, baseLog)
}
func NewRewardGrantRepo(db *gorm.DB, baseLog *logger.Logger) RewardGrantRepo {
	return activity.NewRewardGrantRepo(db, baseLog)
}
