package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/progression-backend/internal/data/repos/testutil"
	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	created, err := repo.Create(dbc, []*types.User{{Email: "userrepo@example.com", Level: 4}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result: %+v", created)
	}
	id := created[0].ID

	level, err := repo.GetLevel(dbc, id)
	if err != nil || level != 4 {
		t.Fatalf("GetLevel: level=%d err=%v", level, err)
	}
	if _, err := repo.GetLevel(dbc, uuid.New()); err == nil {
		t.Fatalf("GetLevel(missing): expected error")
	}

	at := time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC)
	if err := repo.SaveStreakStats(dbc, id, StreakStats{CurrentStreak: 2, LongestStreak: 5, TotalActiveDays: 9, RecalculatedAt: at}); err != nil {
		t.Fatalf("SaveStreakStats: %v", err)
	}
	if err := repo.AddExperience(dbc, id, 150); err != nil {
		t.Fatalf("AddExperience: %v", err)
	}

	got, err := repo.GetByID(dbc, id)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.CurrentStreak != 2 || got.LongestStreak != 5 || got.TotalActiveDays != 9 {
		t.Fatalf("snapshot not persisted: %+v", got)
	}
	if got.StatsRecalculatedAt == nil || !got.StatsRecalculatedAt.Equal(at) {
		t.Fatalf("stats_recalculated_at: got=%v want=%v", got.StatsRecalculatedAt, at)
	}
	if got.Experience != 150 {
		t.Fatalf("experience: want=150 got=%d", got.Experience)
	}

	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID(missing): got=%v err=%v", missing, err)
	}
}
