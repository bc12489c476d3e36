package progression

import (
	"context"
	"testing"

	"github.com/yungbote/progression-backend/internal/data/repos/testutil"
	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

func TestUserUnlockRepoCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserUnlockRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "userunlockrepo@example.com", 1)
	n := testutil.SeedSkillNode(t, ctx, tx, "unlock-repo-node")

	if got, err := repo.GetByUserAndNode(dbc, u.ID, n.ID); err != nil || got != nil {
		t.Fatalf("GetByUserAndNode(missing): got=%v err=%v", got, err)
	}

	first, created, err := repo.CreateIfAbsent(dbc, &types.UserUnlock{UserID: u.ID, NodeID: n.ID})
	if err != nil || !created {
		t.Fatalf("CreateIfAbsent(first): created=%v err=%v", created, err)
	}

	second, created, err := repo.CreateIfAbsent(dbc, &types.UserUnlock{UserID: u.ID, NodeID: n.ID})
	if err != nil {
		t.Fatalf("CreateIfAbsent(second): %v", err)
	}
	if created {
		t.Fatalf("CreateIfAbsent(second): expected created=false")
	}
	if second.ID != first.ID || !second.UnlockedAt.Equal(first.UnlockedAt) {
		t.Fatalf("CreateIfAbsent(second): expected existing row, got=%+v first=%+v", second, first)
	}

	all, err := repo.ListByUser(dbc, u.ID)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListByUser: len=%d err=%v", len(all), err)
	}
}

func TestSkillNodeRepoUpsertByKeyKeepsID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSkillNodeRepo(db, testutil.Logger(t))

	row := &types.SkillNode{Key: "upsert-node", Name: "First"}
	if err := repo.UpsertByKey(dbc, row); err != nil {
		t.Fatalf("UpsertByKey(first): %v", err)
	}
	firstID := row.ID

	again := &types.SkillNode{Key: "upsert-node", Name: "Renamed", RewardXP: 50}
	if err := repo.UpsertByKey(dbc, again); err != nil {
		t.Fatalf("UpsertByKey(second): %v", err)
	}
	if again.ID != firstID {
		t.Fatalf("id changed across upsert: first=%s second=%s", firstID, again.ID)
	}
	got, err := repo.GetByID(dbc, firstID)
	if err != nil || got == nil || got.Name != "Renamed" || got.RewardXP != 50 {
		t.Fatalf("GetByID after upsert: got=%+v err=%v", got, err)
	}
}
