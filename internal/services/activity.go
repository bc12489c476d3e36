package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/modules/progression/streaks"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type RecordSessionInput struct {
	Mode            string     `json:"mode"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	DurationSeconds int        `json:"duration_seconds"`
	Score           float64    `json:"score"`
}

type SessionRecorded struct {
	Session *types.TrainingSession `json:"session"`
	Stats   streaks.StreakData     `json:"stats"`
}

type GoalCompleted struct {
	Title    string             `json:"title"`
	GoalDate string             `json:"goal_date"`
	Created  bool               `json:"created"`
	Stats    streaks.StreakData `json:"stats"`
}

type AchievementGranted struct {
	Key     string `json:"key"`
	Created bool   `json:"created"`
}

// ActivityService writes activity rows and keeps the streak snapshot in step
// with them.
type ActivityService interface {
	RecordSession(ctx context.Context, userID uuid.UUID, in RecordSessionInput) (*SessionRecorded, error)
	// CompleteDailyGoal is idempotent per (title, UTC day).
	CompleteDailyGoal(ctx context.Context, userID uuid.UUID, title string) (*GoalCompleted, error)
	GrantAchievement(ctx context.Context, userID uuid.UUID, key string) (*AchievementGranted, error)
}

type activityService struct {
	log          *logger.Logger
	users        repos.UserRepo
	sessions     repos.TrainingSessionRepo
	goals        repos.DailyGoalRepo
	achievements repos.UserAchievementRepo
	stats        StatsService
	now          func() time.Time
}

func NewActivityService(
	log *logger.Logger,
	users repos.UserRepo,
	sessions repos.TrainingSessionRepo,
	goals repos.DailyGoalRepo,
	achievements repos.UserAchievementRepo,
	stats StatsService,
	now func() time.Time,
) ActivityService {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &activityService{
		log:          log.With("service", "ActivityService"),
		users:        users,
		sessions:     sessions,
		goals:        goals,
		achievements: achievements,
		stats:        stats,
		now:          now,
	}
}

func (s *activityService) RecordSession(ctx context.Context, userID uuid.UUID, in RecordSessionInput) (*SessionRecorded, error) {
	const op = "ActivityService.RecordSession"
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.DurationSeconds < 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "duration_seconds must not be negative", nil)
	}

	completed := s.now().UTC()
	if in.CompletedAt != nil && !in.CompletedAt.IsZero() {
		completed = in.CompletedAt.UTC()
	}
	started := completed.Add(-time.Duration(in.DurationSeconds) * time.Second)
	if in.StartedAt != nil && !in.StartedAt.IsZero() {
		started = in.StartedAt.UTC()
	}
	if started.After(completed) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "started_at is after completed_at", nil)
	}
	duration := in.DurationSeconds
	if duration == 0 {
		duration = int(completed.Sub(started) / time.Second)
	}

	if err := s.requireUser(ctx, op, userID); err != nil {
		return nil, err
	}

	row := &types.TrainingSession{
		UserID:          userID,
		Mode:            strings.TrimSpace(strings.ToLower(in.Mode)),
		StartedAt:       started,
		CompletedAt:     &completed,
		DurationSeconds: duration,
		Score:           in.Score,
	}
	if _, err := s.sessions.Create(dbctx.Context{Ctx: ctx}, []*types.TrainingSession{row}); err != nil {
		return nil, dataagg.MapError(op, fmt.Errorf("create training session: %w", err))
	}

	stats, err := s.stats.Resync(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SessionRecorded{Session: row, Stats: stats}, nil
}

func (s *activityService) CompleteDailyGoal(ctx context.Context, userID uuid.UUID, title string) (*GoalCompleted, error) {
	const op = "ActivityService.CompleteDailyGoal"
	title = strings.TrimSpace(title)
	if userID == uuid.Nil || title == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "user_id and title are required", nil)
	}
	if err := s.requireUser(ctx, op, userID); err != nil {
		return nil, err
	}
	at := s.now().UTC()
	created, err := s.goals.CompleteForDay(dbctx.Context{Ctx: ctx}, userID, title, at)
	if err != nil {
		return nil, dataagg.MapError(op, fmt.Errorf("complete daily goal: %w", err))
	}
	if !created {
		s.log.Debug("daily goal already completed today", "user_id", userID, "title", title)
	}

	stats, err := s.stats.Resync(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &GoalCompleted{
		Title:    title,
		GoalDate: streaks.DayOf(at).Format(streaks.DateLayout),
		Created:  created,
		Stats:    stats,
	}, nil
}

// GrantAchievement records an achievement for ACHIEVEMENT conditions.
// Achievements are not activity, so the streak snapshot is left alone.
func (s *activityService) GrantAchievement(ctx context.Context, userID uuid.UUID, key string) (*AchievementGranted, error) {
	const op = "ActivityService.GrantAchievement"
	key = strings.TrimSpace(key)
	if userID == uuid.Nil || key == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "user_id and key are required", nil)
	}
	if err := s.requireUser(ctx, op, userID); err != nil {
		return nil, err
	}
	created, err := s.achievements.Grant(dbctx.Context{Ctx: ctx}, userID, key, s.now().UTC())
	if err != nil {
		return nil, dataagg.MapError(op, fmt.Errorf("grant achievement: %w", err))
	}
	return &AchievementGranted{Key: key, Created: created}, nil
}

// requireUser runs before any write so an unknown user never leaves rows
// behind a failed response.
func (s *activityService) requireUser(ctx context.Context, op string, userID uuid.UUID) error {
	if s.users == nil {
		return nil
	}
	u, err := s.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return dataagg.MapError(op, fmt.Errorf("load user: %w", err))
	}
	if u == nil {
		return domainagg.NewError(domainagg.CodeUserNotFound, op, "user not found", nil)
	}
	return nil
}
