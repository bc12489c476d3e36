package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	dataagg "github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/modules/progression/streaks"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

// ActivityEventSource lists one subsystem's activity for a user, already
// reduced to timestamps. New subsystems register another source.
type ActivityEventSource interface {
	SourceTag() string
	ListEvents(ctx context.Context, userID uuid.UUID) ([]types.ActivityEvent, error)
}

type completedAtLister interface {
	ListCompletedAt(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error)
}

type completedAtSource struct {
	tag  string
	repo completedAtLister
}

func NewTrainingSessionSource(repo repos.TrainingSessionRepo) ActivityEventSource {
	return &completedAtSource{tag: types.SourceTrainingSession, repo: repo}
}

func NewDailyGoalSource(repo repos.DailyGoalRepo) ActivityEventSource {
	return &completedAtSource{tag: types.SourceDailyGoal, repo: repo}
}

func (s *completedAtSource) SourceTag() string { return s.tag }

func (s *completedAtSource) ListEvents(ctx context.Context, userID uuid.UUID) ([]types.ActivityEvent, error) {
	times, err := s.repo.ListCompletedAt(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, err
	}
	out := make([]types.ActivityEvent, 0, len(times))
	for _, t := range times {
		out = append(out, types.ActivityEvent{Timestamp: t, SourceTag: s.tag})
	}
	return out, nil
}

type StatsService interface {
	// Resync recomputes the user's streak snapshot from every activity source
	// and overwrites the stored one. Safe to call repeatedly and concurrently.
	Resync(ctx context.Context, userID uuid.UUID) (streaks.StreakData, error)
}

type StatsServiceDeps struct {
	Users    repos.UserRepo
	Sources  []ActivityEventSource
	Notifier ProgressNotifier
	Metrics  *observability.Metrics
	// ReadTimeout bounds the source fetch. Zero disables it.
	ReadTimeout time.Duration
	Now         func() time.Time
}

type statsService struct {
	log  *logger.Logger
	deps StatsServiceDeps
	now  func() time.Time
}

func NewStatsService(log *logger.Logger, deps StatsServiceDeps) StatsService {
	if log == nil {
		log = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &statsService{
		log:  log.With("service", "StatsService"),
		deps: deps,
		now:  now,
	}
}

func (s *statsService) Resync(ctx context.Context, userID uuid.UUID) (_ streaks.StreakData, err error) {
	const op = "StatsService.Resync"
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "progression.resync")
	defer func() {
		status := "ok"
		if err != nil {
			status = string(domainagg.CodeOf(err))
			if status == "" {
				status = "error"
			}
		}
		s.deps.Metrics.ObserveResync(status, time.Since(start))
		endSpan(span, err, attribute.Int("resync.sources", len(s.deps.Sources)))
	}()

	if userID == uuid.Nil {
		return streaks.StreakData{}, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}

	events, err := s.fetch(ctx, userID)
	if err != nil {
		s.log.Error("activity fetch failed", "user_id", userID, "error", err)
		return streaks.StreakData{}, dataagg.Unavailable(op, err)
	}

	now := s.now().UTC()
	data := streaks.Aggregate(events, now)
	if err := s.deps.Users.SaveStreakStats(dbctx.Context{Ctx: ctx}, userID, repos.StreakStats{
		CurrentStreak:   data.CurrentStreak,
		LongestStreak:   data.LongestStreak,
		TotalActiveDays: data.TotalActiveDays,
		RecalculatedAt:  now,
	}); err != nil {
		return streaks.StreakData{}, dataagg.MapError(op, dataagg.UserLookup(op, fmt.Errorf("save streak stats: %w", err)))
	}

	s.log.Debug("stats resynced",
		"user_id", userID,
		"events", len(events),
		"current_streak", data.CurrentStreak,
		"longest_streak", data.LongestStreak,
	)
	if s.deps.Notifier != nil {
		s.deps.Notifier.StatsUpdated(ctx, userID, data)
	}
	return data, nil
}

// fetch reads every source concurrently. One failing source fails the whole
// fetch; a partial event list would under-count the streak.
func (s *statsService) fetch(ctx context.Context, userID uuid.UUID) ([]types.ActivityEvent, error) {
	if s.deps.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.ReadTimeout)
		defer cancel()
	}
	lists := make([][]types.ActivityEvent, len(s.deps.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.deps.Sources {
		i, src := i, src
		g.Go(func() error {
			evs, err := src.ListEvents(gctx, userID)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.SourceTag(), err)
			}
			lists[i] = evs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []types.ActivityEvent
	for _, l := range lists {
		out = append(out, l...)
	}
	return out, nil
}
