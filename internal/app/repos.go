package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/progression-backend/internal/data/repos"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type Repos struct {
	User        repos.UserRepo
	SkillNode   repos.SkillNodeRepo
	SkillEdge   repos.SkillEdgeRepo
	Condition   repos.UnlockConditionRepo
	Unlock      repos.UserUnlockRepo
	Session     repos.TrainingSessionRepo
	DailyGoal   repos.DailyGoalRepo
	Achievement repos.UserAchievementRepo
	RewardGrant repos.RewardGrantRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		SkillNode:   repos.NewSkillNodeRepo(db, log),
		SkillEdge:   repos.NewSkillEdgeRepo(db, log),
		Condition:   repos.NewUnlockConditionRepo(db, log),
		Unlock:      repos.NewUserUnlockRepo(db, log),
		Session:     repos.NewTrainingSessionRepo(db, log),
		DailyGoal:   repos.NewDailyGoalRepo(db, log),
		Achievement: repos.NewUserAchievementRepo(db, log),
		RewardGrant: repos.NewRewardGrantRepo(db, log),
	}
}
