package activity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type UserAchievementRepo interface {
	Grant(dbc dbctx.Context, userID uuid.UUID, achievementKey string, at time.Time) (bool, error)
	CountUnlocked(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type userAchievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserAchievementRepo(db *gorm.DB, baseLog *logger.Logger) UserAchievementRepo {
	return &userAchievementRepo{db: db, log: baseLog.With("repo", "UserAchievementRepo")}
}

func (r *userAchievementRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userAchievementRepo) Grant(dbc dbctx.Context, userID uuid.UUID, achievementKey string, at time.Time) (bool, error) {
	if userID == uuid.Nil || achievementKey == "" {
		return false, nil
	}
	now := time.Now().UTC()
	if at.IsZero() {
		at = now
	}
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_key"}},
			DoNothing: true,
		}).
		Create(&types.UserAchievement{
			ID:             uuid.New(),
			UserID:         userID,
			AchievementKey: achievementKey,
			UnlockedAt:     at.UTC(),
			CreatedAt:      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userAchievementRepo) CountUnlocked(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
