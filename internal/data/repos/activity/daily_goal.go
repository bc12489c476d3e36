package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type DailyGoalRepo interface {
	// CompleteForDay records the goal as done for the UTC day of at. A repeat
	// for the same (user, title, day) leaves the first completion untouched.
	CompleteForDay(dbc dbctx.Context, userID uuid.UUID, title string, at time.Time) (bool, error)
	CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	ListCompletedAt(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error)
}

type dailyGoalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyGoalRepo(db *gorm.DB, baseLog *logger.Logger) DailyGoalRepo {
	return &dailyGoalRepo{db: db, log: baseLog.With("repo", "DailyGoalRepo")}
}

func (r *dailyGoalRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *dailyGoalRepo) CompleteForDay(dbc dbctx.Context, userID uuid.UUID, title string, at time.Time) (bool, error) {
	title = strings.TrimSpace(title)
	if userID == uuid.Nil || title == "" {
		return false, nil
	}
	at = at.UTC()
	now := time.Now().UTC()
	row := &types.DailyGoal{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		GoalDate:    at.Format("2006-01-02"),
		CompletedAt: &at,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "title"}, {Name: "goal_date"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *dailyGoalRepo) CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.DailyGoal{}).
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *dailyGoalRepo) ListCompletedAt(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error) {
	out := []time.Time{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.DailyGoal{}).
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Pluck("completed_at", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
