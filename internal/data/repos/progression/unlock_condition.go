package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type UnlockConditionRepo interface {
	ListByNodeID(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.UnlockCondition, error)
	ListByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.UnlockCondition, error)
	ReplaceForNode(dbc dbctx.Context, nodeID uuid.UUID, rows []*types.UnlockCondition) error
}

type unlockConditionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnlockConditionRepo(db *gorm.DB, baseLog *logger.Logger) UnlockConditionRepo {
	return &unlockConditionRepo{db: db, log: baseLog.With("repo", "UnlockConditionRepo")}
}

func (r *unlockConditionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *unlockConditionRepo) ListByNodeID(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.UnlockCondition, error) {
	out := []*types.UnlockCondition{}
	if nodeID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("node_id = ?", nodeID).
		Order("sort_index ASC, type ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *unlockConditionRepo) ListByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.UnlockCondition, error) {
	out := []*types.UnlockCondition{}
	if len(nodeIDs) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("node_id IN ?", nodeIDs).
		Order("node_id ASC, sort_index ASC, type ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceForNode swaps the node's condition set. Callers run it inside the
// seed transaction so readers never observe a node with no conditions.
func (r *unlockConditionRepo) ReplaceForNode(dbc dbctx.Context, nodeID uuid.UUID, rows []*types.UnlockCondition) error {
	if nodeID == uuid.Nil {
		return nil
	}
	t := r.dbx(dbc).WithContext(dbc.Ctx)
	if err := t.Where("node_id = ?", nodeID).Delete(&types.UnlockCondition{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i, c := range rows {
		c.NodeID = nodeID
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.SortIndex == 0 {
			c.SortIndex = i
		}
		c.CreatedAt = now
		c.UpdatedAt = now
	}
	return t.Create(&rows).Error
}
