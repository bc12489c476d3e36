package activity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type TrainingSessionRepo interface {
	Create(dbc dbctx.Context, rows []*types.TrainingSession) ([]*types.TrainingSession, error)
	CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	ListCompletedAt(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error)
}

type trainingSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingSessionRepo(db *gorm.DB, baseLog *logger.Logger) TrainingSessionRepo {
	return &trainingSessionRepo{db: db, log: baseLog.With("repo", "TrainingSessionRepo")}
}

func (r *trainingSessionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *trainingSessionRepo) Create(dbc dbctx.Context, rows []*types.TrainingSession) ([]*types.TrainingSession, error) {
	if len(rows) == 0 {
		return []*types.TrainingSession{}, nil
	}
	now := time.Now().UTC()
	for _, s := range rows {
		if s == nil {
			continue
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.Mode == "" {
			s.Mode = "standard"
		}
		if s.StartedAt.IsZero() {
			s.StartedAt = now
		}
		s.CreatedAt = now
		s.UpdatedAt = now
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *trainingSessionRepo) CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.TrainingSession{}).
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *trainingSessionRepo) ListCompletedAt(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error) {
	out := []time.Time{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.TrainingSession{}).
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Pluck("completed_at", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
