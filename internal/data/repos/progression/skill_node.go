package progression

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type SkillNodeRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SkillNode, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SkillNode, error)
	GetByKeys(dbc dbctx.Context, keys []string) ([]*types.SkillNode, error)
	ListAll(dbc dbctx.Context) ([]*types.SkillNode, error)
	UpsertByKey(dbc dbctx.Context, row *types.SkillNode) error
}

type skillNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillNodeRepo(db *gorm.DB, baseLog *logger.Logger) SkillNodeRepo {
	return &skillNodeRepo{db: db, log: baseLog.With("repo", "SkillNodeRepo")}
}

func (r *skillNodeRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// GetByID returns nil, nil when the node does not exist.
func (r *skillNodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SkillNode, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.SkillNode
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *skillNodeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SkillNode, error) {
	out := []*types.SkillNode{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Order("sort_index ASC, key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillNodeRepo) GetByKeys(dbc dbctx.Context, keys []string) ([]*types.SkillNode, error) {
	out := []*types.SkillNode{}
	if len(keys) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Where("key IN ?", keys).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillNodeRepo) ListAll(dbc dbctx.Context) ([]*types.SkillNode, error) {
	out := []*types.SkillNode{}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Order("sort_index ASC, key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertByKey keeps the node id stable across re-seeds; only presentation
// fields and the reward are refreshed.
func (r *skillNodeRepo) UpsertByKey(dbc dbctx.Context, row *types.SkillNode) error {
	if row == nil || row.Key == "" {
		return nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	t := r.dbx(dbc).WithContext(dbc.Ctx)
	if err := t.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"sort_index",
			"reward_xp",
			"metadata",
			"updated_at",
		}),
	}).Create(row).Error; err != nil {
		return err
	}
	// On conflict the generated id was discarded; reload the persisted one.
	var persisted types.SkillNode
	if err := t.Where("key = ?", row.Key).Take(&persisted).Error; err != nil {
		return err
	}
	row.ID = persisted.ID
	row.CreatedAt = persisted.CreatedAt
	return nil
}
