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

type UserUnlockRepo interface {
	GetByUserAndNode(dbc dbctx.Context, userID, nodeID uuid.UUID) (*types.UserUnlock, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserUnlock, error)
	// CreateIfAbsent inserts the unlock unless one already exists for the
	// (user, node) pair. created=false means another writer got there first;
	// the returned row is always the persisted one.
	CreateIfAbsent(dbc dbctx.Context, row *types.UserUnlock) (*types.UserUnlock, bool, error)
}

type userUnlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserUnlockRepo(db *gorm.DB, baseLog *logger.Logger) UserUnlockRepo {
	return &userUnlockRepo{db: db, log: baseLog.With("repo", "UserUnlockRepo")}
}

func (r *userUnlockRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userUnlockRepo) GetByUserAndNode(dbc dbctx.Context, userID, nodeID uuid.UUID) (*types.UserUnlock, error) {
	if userID == uuid.Nil || nodeID == uuid.Nil {
		return nil, nil
	}
	var out types.UserUnlock
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND node_id = ?", userID, nodeID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userUnlockRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserUnlock, error) {
	out := []*types.UserUnlock{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userUnlockRepo) CreateIfAbsent(dbc dbctx.Context, row *types.UserUnlock) (*types.UserUnlock, bool, error) {
	if row == nil || row.UserID == uuid.Nil || row.NodeID == uuid.Nil {
		return nil, false, errors.New("user unlock requires user_id and node_id")
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.UnlockedAt.IsZero() {
		row.UnlockedAt = now
	}
	row.CreatedAt = now

	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "node_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return row, true, nil
	}
	existing, err := r.GetByUserAndNode(dbc, row.UserID, row.NodeID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("user unlock insert skipped but no row found")
	}
	return existing, false, nil
}
