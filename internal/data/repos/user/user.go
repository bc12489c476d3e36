package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

// StreakStats is the snapshot written by the stats synchronizer.
type StreakStats struct {
	CurrentStreak   int
	LongestStreak   int
	TotalActiveDays int
	RecalculatedAt  time.Time
}

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error)
	GetLevel(dbc dbctx.Context, userID uuid.UUID) (int, error)
	SaveStreakStats(dbc dbctx.Context, userID uuid.UUID, stats StreakStats) error
	AddExperience(dbc dbctx.Context, userID uuid.UUID, amount int) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	now := time.Now().UTC()
	for _, u := range users {
		if u == nil {
			continue
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.Level <= 0 {
			u.Level = 1
		}
		u.CreatedAt = now
		u.UpdatedAt = now
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var u types.User
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	if len(userIDs) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id IN ?", userIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetLevel returns gorm.ErrRecordNotFound for unknown users.
func (r *userRepo) GetLevel(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	var level int
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Select("level").
		Limit(1).
		Scan(&level)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return level, nil
}

// SaveStreakStats overwrites the snapshot columns in a single UPDATE. The new
// values never depend on the old ones, so concurrent writers are harmless.
func (r *userRepo) SaveStreakStats(dbc dbctx.Context, userID uuid.UUID, stats StreakStats) error {
	at := stats.RecalculatedAt.UTC()
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"current_streak":        stats.CurrentStreak,
			"longest_streak":        stats.LongestStreak,
			"total_active_days":     stats.TotalActiveDays,
			"stats_recalculated_at": at,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) AddExperience(dbc dbctx.Context, userID uuid.UUID, amount int) error {
	if amount == 0 {
		return nil
	}
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"experience": gorm.Expr("experience + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
