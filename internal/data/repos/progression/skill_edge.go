package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type SkillEdgeRepo interface {
	ListAll(dbc dbctx.Context) ([]*types.SkillEdge, error)
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.SkillEdge) (int, error)
	FullDeleteByTargetNodeIDs(dbc dbctx.Context, targetIDs []uuid.UUID) error
}

type skillEdgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillEdgeRepo(db *gorm.DB, baseLog *logger.Logger) SkillEdgeRepo {
	return &skillEdgeRepo{db: db, log: baseLog.With("repo", "SkillEdgeRepo")}
}

func (r *skillEdgeRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *skillEdgeRepo) ListAll(dbc dbctx.Context) ([]*types.SkillEdge, error) {
	out := []*types.SkillEdge{}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Order("target_node_id ASC, source_node_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillEdgeRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.SkillEdge) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for _, e := range rows {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = now
	}
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_node_id"}, {Name: "target_node_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *skillEdgeRepo) FullDeleteByTargetNodeIDs(dbc dbctx.Context, targetIDs []uuid.UUID) error {
	if len(targetIDs) == 0 {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Where("target_node_id IN ?", targetIDs).
		Delete(&types.SkillEdge{}).Error
}
