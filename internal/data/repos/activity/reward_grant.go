package activity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type RewardGrantRepo interface {
	Create(dbc dbctx.Context, row *types.RewardGrant) error
	SumByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type rewardGrantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardGrantRepo(db *gorm.DB, baseLog *logger.Logger) RewardGrantRepo {
	return &rewardGrantRepo{db: db, log: baseLog.With("repo", "RewardGrantRepo")}
}

func (r *rewardGrantRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *rewardGrantRepo) Create(dbc dbctx.Context, row *types.RewardGrant) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt = time.Now().UTC()
	return r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error
}

func (r *rewardGrantRepo) SumByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var total int64
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.RewardGrant{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
