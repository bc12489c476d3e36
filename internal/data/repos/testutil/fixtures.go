package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/progression-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, level int) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Trainee",
		Level:       level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSkillNode(tb testing.TB, ctx context.Context, tx *gorm.DB, key string) *types.SkillNode {
	tb.Helper()
	now := time.Now().UTC()
	n := &types.SkillNode{
		ID:        uuid.New(),
		Key:       key,
		Name:      key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed skill node: %v", err)
	}
	return n
}

func PtrTime(v time.Time) *time.Time { return &v }
